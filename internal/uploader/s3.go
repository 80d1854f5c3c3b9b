package uploader

import (
	"context"
	"fmt"
)

// S3Settings configures the aws-s3 backend
type S3Settings struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Path            string `yaml:"path"`
	CustomDomain    string `yaml:"custom_domain"`
	// Endpoint overrides the regional AWS endpoint, e.g. for S3-compatible gateways
	Endpoint string `yaml:"endpoint,omitempty"`
}

func (s *S3Settings) Validate() error {
	return required(map[string]string{
		"access_key_id":     s.AccessKeyID,
		"secret_access_key": s.SecretAccessKey,
		"region":            s.Region,
		"bucket":            s.Bucket,
	})
}

func init() {
	Register(Descriptor{
		ID:          "aws-s3",
		Description: "Amazon S3",
		NewSettings: func() Settings { return &S3Settings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*S3Settings)
			profile := storeProfile{
				backend:      "aws-s3",
				endpoint:     fmt.Sprintf("s3.%s.amazonaws.com", s.Region),
				secure:       true,
				region:       s.Region,
				bucket:       s.Bucket,
				accessKey:    s.AccessKeyID,
				secretKey:    s.SecretAccessKey,
				pathTmpl:     s.Path,
				customDomain: s.CustomDomain,
				publicURL: func(key string) string {
					return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Bucket, s.Region, escapeKey(key))
				},
			}
			if s.Endpoint != "" {
				host, secure, err := splitEndpoint(s.Endpoint)
				if err != nil {
					return nil, err
				}
				profile.endpoint, profile.secure, profile.pathStyle = host, secure, true
				profile.publicURL = func(key string) string {
					return fmt.Sprintf("%s://%s/%s/%s", scheme(secure), host, s.Bucket, escapeKey(key))
				}
			}
			return newObjectStore(profile, deps)
		},
	})
}
