package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/altafino/mdimg-publish/internal/utility/u_io"
)

// LocalSettings copies images into a directory served at PublicURL
type LocalSettings struct {
	Directory string `yaml:"directory"`
	PublicURL string `yaml:"public_url"`
	Path      string `yaml:"path"`
}

func (s *LocalSettings) Validate() error {
	if err := required(map[string]string{
		"directory":  s.Directory,
		"public_url": s.PublicURL,
	}); err != nil {
		return err
	}
	u, err := url.Parse(s.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("public_url %q must be an absolute URL", s.PublicURL)
	}
	return nil
}

type localUploader struct {
	directory string
	publicURL string
	pathTmpl  string
	deps      Deps
	hosted    hostMatcher
	logger    *slog.Logger
}

func init() {
	Register(Descriptor{
		ID:          "local",
		Description: "Local directory behind a web server",
		NewSettings: func() Settings { return &LocalSettings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*LocalSettings)
			return &localUploader{
				directory: s.Directory,
				publicURL: strings.TrimSuffix(s.PublicURL, "/"),
				pathTmpl:  s.Path,
				deps:      deps,
				hosted:    newHostMatcher(s.PublicURL),
				logger:    deps.Logger.With("backend", "local"),
			}, nil
		},
	})
}

// Upload implements Uploader. Existing files are never overwritten; a numeric
// suffix is added instead.
func (l *localUploader) Upload(ctx context.Context, content []byte, name, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(l.pathTmpl, u_io.SafeName(name), l.deps)
	target := filepath.Join(l.directory, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", remoteError("local", fmt.Errorf("failed to create storage directory: %w", err))
	}

	target = u_io.EnsureUniqueFilename(target)
	if err := u_io.WriteNew(target, content); err != nil {
		return "", remoteError("local", err)
	}

	rel, err := filepath.Rel(l.directory, target)
	if err != nil {
		return "", remoteError("local", err)
	}

	l.logger.Debug("image stored", "path", target, "size", len(content))
	return l.publicURL + "/" + escapeKey(filepath.ToSlash(rel)), nil
}

// IsHosted implements HostedChecker
func (l *localUploader) IsHosted(link *url.URL) bool {
	return l.hosted.IsHosted(link)
}
