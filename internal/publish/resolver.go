package publish

import (
	"errors"
	"path"
	"strings"
)

const drawingExt = ".excalidraw"

// Resolution is the outcome of resolving one local image token
type Resolution struct {
	Location    string
	Fallback    string
	DisplayName string
}

// Resolve maps a local image token to a vault-relative location. It never
// touches the file system; callers try Fallback when Location is missing.
//
// A bare file name lives in attachmentFolder, which is itself relative to
// the document when it starts with "./" or "../". A token with a separator
// is relative to the document, with the vault root as fallback.
func Resolve(raw, attachmentFolder string, doc DocumentContext) (Resolution, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return Resolution{}, errors.New("empty image path")
	}
	if strings.HasSuffix(strings.ToLower(token), drawingExt) {
		token += ".png"
	}

	docDir := ""
	if doc.Active {
		docDir = path.Dir(doc.Path)
	}

	var res Resolution
	if !strings.Contains(token, "/") {
		folder := strings.TrimSpace(attachmentFolder)
		if isRelativeFolder(folder) {
			if !doc.Active {
				return Resolution{}, ErrNoActiveDocument
			}
			res.Location = vaultClean(path.Join(docDir, folder, token))
		} else {
			res.Location = vaultClean(path.Join(folder, token))
		}
		if doc.Active {
			res.Fallback = vaultClean(path.Join(docDir, token))
		}
	} else {
		if !doc.Active {
			return Resolution{}, ErrNoActiveDocument
		}
		stripped := stripLeading(token)
		res.Location = vaultClean(path.Join(docDir, stripped))
		res.Fallback = vaultClean(stripped)
	}

	if res.Fallback == res.Location {
		res.Fallback = ""
	}
	res.DisplayName = path.Base(res.Location)
	return res, nil
}

func isRelativeFolder(folder string) bool {
	return folder == "." || folder == ".." ||
		strings.HasPrefix(folder, "./") || strings.HasPrefix(folder, "../")
}

// stripLeading removes leading "/" and "./" runs
func stripLeading(p string) string {
	for {
		switch {
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		default:
			return p
		}
	}
}

// vaultClean cleans p and drops the "." produced for an empty path
func vaultClean(p string) string {
	p = strings.TrimPrefix(path.Clean(p), "/")
	if p == "." {
		return ""
	}
	return p
}
