package uploader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

const imgurAPIBase = "https://api.imgur.com/3/"

// ImgurSettings configures anonymous imgur uploads
type ImgurSettings struct {
	ClientID string `yaml:"client_id"`
	APIBase  string `yaml:"api_base,omitempty"`
}

func (s *ImgurSettings) Validate() error {
	return required(map[string]string{"client_id": s.ClientID})
}

type imgurUploader struct {
	client *resty.Client
	logger *slog.Logger
}

type imgurResponse struct {
	Data struct {
		Link  string `json:"link"`
		Error any    `json:"error"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

func init() {
	Register(Descriptor{
		ID:          "imgur",
		Description: "Imgur (anonymous upload)",
		NewSettings: func() Settings { return &ImgurSettings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*ImgurSettings)
			base := s.APIBase
			if base == "" {
				base = imgurAPIBase
			}
			client := resty.New().
				SetBaseURL(strings.TrimSuffix(base, "/")).
				SetHeader("Authorization", "Client-ID "+s.ClientID)
			return &imgurUploader{client: client, logger: deps.Logger.With("backend", "imgur")}, nil
		},
	})
}

// Upload implements Uploader
func (u *imgurUploader) Upload(ctx context.Context, content []byte, name, _ string) (string, error) {
	var result, failure imgurResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("image", name, bytes.NewReader(content)).
		SetResult(&result).
		SetError(&failure).
		Post("/image")
	if err != nil {
		return "", remoteError("imgur", err)
	}
	if resp.IsError() {
		msg := fmt.Sprint(failure.Data.Error)
		if failure.Data.Error == nil {
			msg = strings.TrimSpace(resp.String())
		}
		return "", &RemoteError{Backend: "imgur", Message: fmt.Sprintf("status %d: %s", resp.StatusCode(), msg)}
	}
	if result.Data.Link == "" {
		return "", &RemoteError{Backend: "imgur", Message: "response carried no link"}
	}

	u.logger.Debug("image uploaded", "name", name, "link", result.Data.Link)
	return result.Data.Link, nil
}

// IsHosted reports imgur.com and its subdomains
func (u *imgurUploader) IsHosted(link *url.URL) bool {
	host := strings.ToLower(link.Hostname())
	return host == "imgur.com" || strings.HasSuffix(host, ".imgur.com")
}
