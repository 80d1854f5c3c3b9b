package uploader

import (
	"context"
	"fmt"
	"strings"
)

// OSSSettings configures the aliyun-oss backend. Region is the OSS region id,
// e.g. oss-cn-hangzhou.
type OSSSettings struct {
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Path            string `yaml:"path"`
	CustomDomain    string `yaml:"custom_domain"`
}

func (s *OSSSettings) Validate() error {
	if err := required(map[string]string{
		"access_key_id":     s.AccessKeyID,
		"access_key_secret": s.AccessKeySecret,
		"region":            s.Region,
		"bucket":            s.Bucket,
	}); err != nil {
		return err
	}
	if !strings.HasPrefix(s.Region, "oss-") {
		return fmt.Errorf("region %q must look like oss-<location>", s.Region)
	}
	return nil
}

func init() {
	Register(Descriptor{
		ID:          "aliyun-oss",
		Description: "Aliyun OSS",
		NewSettings: func() Settings { return &OSSSettings{} },
		Build: func(_ context.Context, settings Settings, deps Deps) (Uploader, error) {
			s := settings.(*OSSSettings)
			return newObjectStore(storeProfile{
				backend:      "aliyun-oss",
				endpoint:     s.Region + ".aliyuncs.com",
				secure:       true,
				region:       strings.TrimPrefix(s.Region, "oss-"),
				bucket:       s.Bucket,
				accessKey:    s.AccessKeyID,
				secretKey:    s.AccessKeySecret,
				pathTmpl:     s.Path,
				customDomain: s.CustomDomain,
				publicURL: func(key string) string {
					return fmt.Sprintf("https://%s.%s.aliyuncs.com/%s", s.Bucket, s.Region, escapeKey(key))
				},
			}, deps)
		},
	})
}
