// Package host provides file-system, clipboard and terminal implementations
// of the collaborators the publish pipeline needs.
package host

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/altafino/mdimg-publish/internal/publish"
	"github.com/altafino/mdimg-publish/internal/utility/u_io"
)

var ErrOutsideVault = errors.New("path escapes the vault")

// Vault is a directory of markdown documents and attachments. Paths handed
// to it are vault-relative with "/" separators.
type Vault struct {
	Root string
}

// NewVault returns a Vault rooted at the absolute form of root
func NewVault(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &Vault{Root: abs}, nil
}

// FullPath maps a vault-relative path to the file system
func (v *Vault) FullPath(rel string) (string, error) {
	clean := path.Clean(filepath.ToSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, rel)
	}
	return filepath.Join(v.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Rel maps a file-system path to a vault-relative one
func (v *Vault) Rel(full string) (string, error) {
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(v.Root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, full)
	}
	return rel, nil
}

// Exists implements publish.FileSystem. Directories do not count.
func (v *Vault) Exists(rel string) bool {
	full, err := v.FullPath(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// ReadBinary implements publish.FileSystem
func (v *Vault) ReadBinary(rel string) ([]byte, error) {
	full, err := v.FullPath(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// ContextPath returns the absolute path of a vault-relative location, or the
// location itself when it cannot be mapped
func (v *Vault) ContextPath(rel string) string {
	full, err := v.FullPath(rel)
	if err != nil {
		return rel
	}
	return full
}

// FileDocument is a markdown file inside a Vault
type FileDocument struct {
	Vault *Vault
	// Path is vault-relative; empty means no active document
	Path string
}

// OpenDocument resolves a document path given on the command line
func OpenDocument(v *Vault, docPath string) (*FileDocument, error) {
	if docPath == "" {
		return &FileDocument{Vault: v}, nil
	}
	full := docPath
	if !filepath.IsAbs(full) {
		if _, err := os.Stat(full); err != nil {
			full = filepath.Join(v.Root, docPath)
		}
	}
	rel, err := v.Rel(full)
	if err != nil {
		return nil, err
	}
	return &FileDocument{Vault: v, Path: rel}, nil
}

// Context implements publish.Document
func (d *FileDocument) Context() publish.DocumentContext {
	return publish.DocumentContext{Path: d.Path, Active: d.Path != ""}
}

// ActiveText implements publish.Document
func (d *FileDocument) ActiveText() (string, error) {
	if d.Path == "" {
		return "", publish.ErrNoActiveDocument
	}
	data, err := d.Vault.ReadBinary(d.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetActiveText implements publish.Document. The file is replaced atomically.
func (d *FileDocument) SetActiveText(text string) error {
	if d.Path == "" {
		return publish.ErrNoActiveDocument
	}
	full, err := d.Vault.FullPath(d.Path)
	if err != nil {
		return err
	}
	return u_io.WriteAtomic(full, []byte(text))
}

// FullPath returns the document's file-system path
func (d *FileDocument) FullPath() (string, error) {
	return d.Vault.FullPath(d.Path)
}
