package uploader

import (
	"context"
	"fmt"
)

// R2Settings configures the cloudflare-r2 backend
type R2Settings struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Path            string `yaml:"path"`
	CustomDomain    string `yaml:"custom_domain"`
}

func (s *R2Settings) Validate() error {
	if err := required(map[string]string{
		"access_key_id":     s.AccessKeyID,
		"secret_access_key": s.SecretAccessKey,
		"endpoint":          s.Endpoint,
		"bucket":            s.Bucket,
	}); err != nil {
		return err
	}
	_, _, err := splitEndpoint(s.Endpoint)
	return err
}

func init() {
	Register(Descriptor{
		ID:          "cloudflare-r2",
		Description: "Cloudflare R2",
		NewSettings: func() Settings { return &R2Settings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*R2Settings)
			host, secure, err := splitEndpoint(s.Endpoint)
			if err != nil {
				return nil, err
			}
			return newObjectStore(storeProfile{
				backend:      "cloudflare-r2",
				endpoint:     host,
				secure:       secure,
				pathStyle:    true,
				region:       "auto",
				bucket:       s.Bucket,
				accessKey:    s.AccessKeyID,
				secretKey:    s.SecretAccessKey,
				pathTmpl:     s.Path,
				customDomain: s.CustomDomain,
				publicURL: func(key string) string {
					// R2 buckets are private unless a custom domain fronts them
					if s.CustomDomain != "" {
						return escapeKey(key)
					}
					return fmt.Sprintf("%s://%s/%s/%s", scheme(secure), host, s.Bucket, escapeKey(key))
				},
			}, deps)
		},
	})
}
