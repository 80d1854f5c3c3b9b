package uploader

import (
	"context"
	"fmt"
)

// B2Settings configures the backblaze-b2 backend
type B2Settings struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Path            string `yaml:"path"`
	CustomDomain    string `yaml:"custom_domain"`
}

func (s *B2Settings) Validate() error {
	return required(map[string]string{
		"access_key_id":     s.AccessKeyID,
		"secret_access_key": s.SecretAccessKey,
		"region":            s.Region,
		"bucket":            s.Bucket,
	})
}

func init() {
	Register(Descriptor{
		ID:          "backblaze-b2",
		Description: "Backblaze B2",
		NewSettings: func() Settings { return &B2Settings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*B2Settings)
			endpoint := fmt.Sprintf("s3.%s.backblazeb2.com", s.Region)
			return newObjectStore(storeProfile{
				backend:          "backblaze-b2",
				endpoint:         endpoint,
				secure:           true,
				pathStyle:        true,
				region:           s.Region,
				bucket:           s.Bucket,
				accessKey:        s.AccessKeyID,
				secretKey:        s.SecretAccessKey,
				pathTmpl:         s.Path,
				customDomain:     s.CustomDomain,
				imageContentType: true,
				publicURL: func(key string) string {
					if s.CustomDomain != "" {
						return escapeKey(key)
					}
					return fmt.Sprintf("https://%s/%s/%s", endpoint, s.Bucket, escapeKey(key))
				},
			}, deps)
		},
	})
}
