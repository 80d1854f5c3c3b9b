package uploader

import (
	"context"
	"fmt"
)

// COSSettings configures the tencent-cos backend. Bucket includes the APPID
// suffix, e.g. images-1250000000.
type COSSettings struct {
	SecretID     string `yaml:"secret_id"`
	SecretKey    string `yaml:"secret_key"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Path         string `yaml:"path"`
	CustomDomain string `yaml:"custom_domain"`
}

func (s *COSSettings) Validate() error {
	return required(map[string]string{
		"secret_id":  s.SecretID,
		"secret_key": s.SecretKey,
		"region":     s.Region,
		"bucket":     s.Bucket,
	})
}

func init() {
	Register(Descriptor{
		ID:          "tencent-cos",
		Description: "Tencent Cloud COS",
		NewSettings: func() Settings { return &COSSettings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*COSSettings)
			return newObjectStore(storeProfile{
				backend:      "tencent-cos",
				endpoint:     fmt.Sprintf("cos.%s.myqcloud.com", s.Region),
				secure:       true,
				region:       s.Region,
				bucket:       s.Bucket,
				accessKey:    s.SecretID,
				secretKey:    s.SecretKey,
				pathTmpl:     s.Path,
				customDomain: s.CustomDomain,
				publicURL: func(key string) string {
					return fmt.Sprintf("https://%s.cos.%s.myqcloud.com/%s", s.Bucket, s.Region, escapeKey(key))
				},
			}, deps)
		},
	})
}
