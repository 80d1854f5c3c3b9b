package uploader

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomizeDomain(t *testing.T) {
	tests := []struct {
		name, raw, domain, want string
	}{
		{"swap host", "https://bucket.s3.eu-west-1.amazonaws.com/a/b.png", "cdn.test", "https://cdn.test/a/b.png"},
		{"domain with scheme", "https://host/x.png", "https://cdn.test/", "https://cdn.test/x.png"},
		{"keep http scheme", "http://host:9000/b/x.png", "cdn.test", "http://cdn.test/b/x.png"},
		{"bare key", "2023/pic.png", "cdn.test", "https://cdn.test/2023/pic.png"},
		{"no domain", "https://host/x.png", "", "https://host/x.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CustomizeDomain(tt.raw, tt.domain))
		})
	}
}

func TestHostMatcher(t *testing.T) {
	m := newHostMatcher("https://CDN.test/", "", "bucket.s3.amazonaws.com")

	for raw, want := range map[string]bool{
		"https://cdn.test/a.png":                true,
		"http://bucket.s3.amazonaws.com/x.png":  true,
		"https://other.test/a.png":              false,
		"https://cdn.test.evil.example/a.png":   false,
	} {
		u, err := url.Parse(raw)
		assert.NoError(t, err)
		assert.Equal(t, want, m.IsHosted(u), raw)
	}
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "2023/my%20pic.png", escapeKey("2023/my pic.png"))
}
