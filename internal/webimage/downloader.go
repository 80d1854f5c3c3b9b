// Package webimage fetches images referenced by web URL so they can be
// re-uploaded to the configured backend.
package webimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jhillyerd/enmime/mediatype"
)

const userAgent = "mdimg-publish"

var (
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrNotImage         = errors.New("URL does not point to an image")
)

var imageName = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|webp|bmp)$`)

// MimeToExt maps image content types to file extensions
var MimeToExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
}

// Image is a downloaded web image
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Downloader fetches web images over HTTP
type Downloader struct {
	client *resty.Client
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Downloader
type Option func(*Downloader)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = resty.NewWithClient(c).SetHeader("User-Agent", userAgent) }
}

// WithClock fixes the time used for generated file names
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) { d.now = now }
}

// NewDownloader creates a Downloader
func NewDownloader(logger *slog.Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Downloader{
		client: resty.New().SetHeader("User-Agent", userAgent),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches rawURL. The response must be 200 and, when a content type
// is present, an image/* type.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*Image, error) {
	resp, err := d.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image from %s: %w", rawURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrUnexpectedStatus, resp.StatusCode(), rawURL)
	}

	contentType := ""
	if header := resp.Header().Get("Content-Type"); header != "" {
		mtype, _, _, err := mediatype.Parse(header)
		if err != nil {
			d.logger.Debug("failed to parse media type", "url", rawURL, "content_type", header, "error", err)
			mtype = strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0]))
		}
		if !strings.HasPrefix(mtype, "image/") {
			return nil, fmt.Errorf("%w (Content-Type: %s)", ErrNotImage, header)
		}
		contentType = mtype
	}

	filename := d.Filename(rawURL, contentType)
	d.logger.Debug("web image downloaded",
		"url", rawURL,
		"filename", filename,
		"content_type", contentType,
		"size", len(resp.Body()))

	return &Image{
		Data:        resp.Body(),
		Filename:    filename,
		ContentType: contentType,
	}, nil
}

// Filename derives a file name for rawURL using the downloader's clock
func (d *Downloader) Filename(rawURL, contentType string) string {
	return FileName(rawURL, contentType, d.now())
}

// FileName is the decoded last path segment of rawURL when it carries an
// image extension, otherwise web-image-<unix millis><ext>.
func FileName(rawURL, contentType string, now time.Time) string {
	if u, err := url.Parse(rawURL); err == nil {
		segment := path.Base(strings.TrimRight(u.EscapedPath(), "/"))
		if decoded, err := url.PathUnescape(segment); err == nil && imageName.MatchString(decoded) {
			return decoded
		}
	}
	return fmt.Sprintf("web-image-%d%s", now.UnixMilli(), ExtensionFor(contentType))
}

// ExtensionFor maps a content type to an extension, defaulting to .jpg
func ExtensionFor(contentType string) string {
	if ext, ok := MimeToExt[strings.ToLower(contentType)]; ok {
		return ext
	}
	return ".jpg"
}
