package uploader

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
)

const imagekitUploadBase = "https://upload.imagekit.io/api/v1"

// ImagekitSettings configures the imagekit backend. Endpoint is the account's
// URL endpoint, e.g. https://ik.imagekit.io/<id>.
type ImagekitSettings struct {
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	Endpoint   string `yaml:"endpoint"`
	Path       string `yaml:"path"`
	UploadBase string `yaml:"upload_base,omitempty"`
}

func (s *ImagekitSettings) Validate() error {
	return required(map[string]string{
		"public_key":  s.PublicKey,
		"private_key": s.PrivateKey,
		"endpoint":    s.Endpoint,
	})
}

type imagekitUploader struct {
	client   *resty.Client
	pathTmpl string
	deps     Deps
	hosted   hostMatcher
	logger   *slog.Logger
}

type imagekitResponse struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

type imagekitError struct {
	Message string `json:"message"`
	Help    string `json:"help"`
}

func init() {
	Register(Descriptor{
		ID:          "imagekit",
		Description: "ImageKit",
		NewSettings: func() Settings { return &ImagekitSettings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*ImagekitSettings)
			base := s.UploadBase
			if base == "" {
				base = imagekitUploadBase
			}
			// private key as basic-auth user, empty password
			client := resty.New().
				SetBaseURL(strings.TrimSuffix(base, "/")).
				SetBasicAuth(s.PrivateKey, "")
			return &imagekitUploader{
				client:   client,
				pathTmpl: s.Path,
				deps:     deps,
				hosted:   newHostMatcher(s.Endpoint, "ik.imagekit.io"),
				logger:   deps.Logger.With("backend", "imagekit"),
			}, nil
		},
	})
}

// Upload implements Uploader
func (u *imagekitUploader) Upload(ctx context.Context, content []byte, name, _ string) (string, error) {
	key := objectKey(u.pathTmpl, name, u.deps)
	form := map[string]string{
		"fileName":          path.Base(key),
		"useUniqueFileName": "true",
	}
	if dir := path.Dir(key); dir != "." {
		form["folder"] = "/" + dir
	}

	var result imagekitResponse
	var failure imagekitError
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", path.Base(key), bytes.NewReader(content)).
		SetFormData(form).
		SetResult(&result).
		SetError(&failure).
		Post("/files/upload")
	if err != nil {
		return "", remoteError("imagekit", err)
	}
	if resp.IsError() {
		msg := failure.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return "", &RemoteError{Backend: "imagekit", Message: msg}
	}
	if result.URL == "" {
		return "", &RemoteError{Backend: "imagekit", Message: "response carried no url"}
	}

	u.logger.Debug("image uploaded", "name", name, "file_id", result.FileID)
	return result.URL, nil
}

// IsHosted implements HostedChecker
func (u *imagekitUploader) IsHosted(link *url.URL) bool {
	return u.hosted.IsHosted(link)
}
