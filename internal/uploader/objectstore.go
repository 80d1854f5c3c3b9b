package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// storeProfile describes one S3-compatible provider after its settings
// variant has been translated into connection details.
type storeProfile struct {
	backend      string
	endpoint     string // host[:port], no scheme
	secure       bool
	pathStyle    bool
	region       string
	bucket       string
	accessKey    string
	secretKey    string
	pathTmpl     string
	customDomain string

	// publicURL builds the URL of an uploaded key before domain customization
	publicURL func(key string) string
	// imageContentType sets Content-Type to image/<ext>
	imageContentType bool
	// underscoreSpaces replaces spaces in file names before key generation
	underscoreSpaces bool
}

type objectStore struct {
	profile storeProfile
	client  *minio.Client
	deps    Deps
	hosted  hostMatcher
	logger  *slog.Logger
}

func newObjectStore(profile storeProfile, deps Deps) (*objectStore, error) {
	lookup := minio.BucketLookupDNS
	if profile.pathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(profile.endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(profile.accessKey, profile.secretKey, ""),
		Secure:       profile.secure,
		Region:       profile.region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", profile.backend, err)
	}

	hosts := []string{profile.customDomain}
	if probe := profile.publicURL("probe"); strings.Contains(probe, "://") {
		hosts = append(hosts, probe)
	}

	return &objectStore{
		profile: profile,
		client:  client,
		deps:    deps,
		hosted:  newHostMatcher(hosts...),
		logger:  deps.Logger.With("backend", profile.backend),
	}, nil
}

// Upload implements Uploader
func (s *objectStore) Upload(ctx context.Context, content []byte, name, contextPath string) (string, error) {
	if s.profile.underscoreSpaces {
		name = strings.ReplaceAll(name, " ", "_")
	}
	key := objectKey(s.profile.pathTmpl, name, s.deps)

	opts := minio.PutObjectOptions{}
	if s.profile.imageContentType {
		opts.ContentType = "image/" + strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	}

	s.logger.Debug("putting object",
		"bucket", s.profile.bucket,
		"key", key,
		"size", len(content),
	)

	info, err := s.client.PutObject(ctx, s.profile.bucket, key, bytes.NewReader(content), int64(len(content)), opts)
	if err != nil {
		return "", remoteError(s.profile.backend, err)
	}

	if info.Key != "" {
		key = info.Key
	}
	return CustomizeDomain(s.profile.publicURL(key), s.profile.customDomain), nil
}

// IsHosted implements HostedChecker
func (s *objectStore) IsHosted(u *url.URL) bool {
	return s.hosted.IsHosted(u)
}

// splitEndpoint accepts "host", "host:port" or a full URL and reports whether TLS is used
func splitEndpoint(endpoint string) (host string, secure bool, err error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "http", nil
}

func scheme(secure bool) string {
	if secure {
		return "https"
	}
	return "http"
}

func required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
}
