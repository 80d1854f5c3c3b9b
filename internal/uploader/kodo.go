package uploader

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// KodoSettings configures the qiniu-kodo backend. Kodo buckets have no usable
// default domain, so CustomDomain is required.
type KodoSettings struct {
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Region       string `yaml:"region"` // e.g. cn-east-1
	Bucket       string `yaml:"bucket"`
	Path         string `yaml:"path"`
	CustomDomain string `yaml:"custom_domain"`
}

func (s *KodoSettings) Validate() error {
	if err := required(map[string]string{
		"access_key": s.AccessKey,
		"secret_key": s.SecretKey,
		"region":     s.Region,
		"bucket":     s.Bucket,
	}); err != nil {
		return err
	}
	if strings.TrimSpace(s.CustomDomain) == "" {
		return errors.New("custom_domain is required for Qiniu Kodo")
	}
	return nil
}

func init() {
	Register(Descriptor{
		ID:          "qiniu-kodo",
		Description: "Qiniu Kodo",
		NewSettings: func() Settings { return &KodoSettings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*KodoSettings)
			return newObjectStore(storeProfile{
				backend:          "qiniu-kodo",
				endpoint:         fmt.Sprintf("s3.%s.qiniucs.com", s.Region),
				secure:           true,
				region:           s.Region,
				bucket:           s.Bucket,
				accessKey:        s.AccessKey,
				secretKey:        s.SecretKey,
				pathTmpl:         s.Path,
				customDomain:     s.CustomDomain,
				underscoreSpaces: true,
				publicURL:        escapeKey,
			}, deps)
		},
	})
}
