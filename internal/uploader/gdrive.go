package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// GDriveSettings configures the gdrive backend with a service account
type GDriveSettings struct {
	CredentialsFile string `yaml:"credentials_file"`
	ParentFolderID  string `yaml:"parent_folder_id"`
	Path            string `yaml:"path"`
}

func (s *GDriveSettings) Validate() error {
	return required(map[string]string{
		"credentials_file": s.CredentialsFile,
		"parent_folder_id": s.ParentFolderID,
	})
}

type gdriveUploader struct {
	service  *drive.Service
	parentID string
	pathTmpl string
	deps     Deps
	logger   *slog.Logger

	// folder lookups are serialised so concurrent uploads don't create twins
	foldersMu sync.Mutex
	folders   map[string]string
}

func init() {
	Register(Descriptor{
		ID:          "gdrive",
		Description: "Google Drive",
		NewSettings: func() Settings { return &GDriveSettings{} },
		Build: func(ctx context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*GDriveSettings)
			service, err := drive.NewService(ctx, option.WithCredentialsFile(s.CredentialsFile))
			if err != nil {
				return nil, fmt.Errorf("failed to create Drive client: %w", err)
			}
			return newGDriveUploader(service, s, deps), nil
		},
	})
}

func newGDriveUploader(service *drive.Service, s *GDriveSettings, deps Deps) *gdriveUploader {
	return &gdriveUploader{
		service:  service,
		parentID: s.ParentFolderID,
		pathTmpl: s.Path,
		deps:     deps,
		logger:   deps.Logger.With("backend", "gdrive"),
		folders:  make(map[string]string),
	}
}

// Upload implements Uploader. The file is shared as readable by anyone with the link.
func (gd *gdriveUploader) Upload(ctx context.Context, content []byte, name, _ string) (string, error) {
	key := objectKey(gd.pathTmpl, name, gd.deps)
	dir, filename := path.Split(key)

	folderID, err := gd.ensureFolderStructure(ctx, dir)
	if err != nil {
		return "", remoteError("gdrive", fmt.Errorf("failed to ensure folder structure: %w", err))
	}

	gd.logger.Debug("creating file", "filename", filename, "folderID", folderID)
	file := &drive.File{
		Name:     filename,
		Parents:  []string{folderID},
		MimeType: imageMimeType(filename),
	}
	uploaded, err := gd.service.Files.Create(file).
		Media(bytes.NewReader(content)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", remoteError("gdrive", fmt.Errorf("failed to upload file: %w", err))
	}
	if uploaded.Id == "" {
		return "", remoteError("gdrive", errors.New("drive returned no file id"))
	}

	_, err = gd.service.Permissions.Create(uploaded.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).
		Do()
	if err != nil {
		return "", remoteError("gdrive", fmt.Errorf("failed to share file: %w", err))
	}

	gd.logger.Debug("file uploaded", "filename", filename, "id", uploaded.Id, "size", len(content))
	return driveViewURL(uploaded.Id), nil
}

func (gd *gdriveUploader) ensureFolderStructure(ctx context.Context, dir string) (string, error) {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return gd.parentID, nil
	}

	gd.foldersMu.Lock()
	defer gd.foldersMu.Unlock()

	if id, ok := gd.folders[dir]; ok {
		return id, nil
	}

	currentParentID := gd.parentID
	for _, part := range strings.Split(dir, "/") {
		query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
			escapeDriveQuery(part), currentParentID, folderMimeType)

		fileList, err := gd.service.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to search for folder: %w", err)
		}
		if len(fileList.Files) > 0 {
			currentParentID = fileList.Files[0].Id
			continue
		}

		created, err := gd.service.Files.Create(&drive.File{
			Name:     part,
			MimeType: folderMimeType,
			Parents:  []string{currentParentID},
		}).Fields("id").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to create folder: %w", err)
		}
		currentParentID = created.Id
	}

	gd.folders[dir] = currentParentID
	return currentParentID, nil
}

// IsHosted reports drive.google.com links
func (gd *gdriveUploader) IsHosted(link *url.URL) bool {
	return strings.EqualFold(link.Hostname(), "drive.google.com")
}

func driveViewURL(id string) string {
	return "https://drive.google.com/uc?export=view&id=" + url.QueryEscape(id)
}

func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func imageMimeType(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
