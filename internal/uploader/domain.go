package uploader

import (
	"net/url"
	"regexp"
	"strings"
)

var schemeHost = regexp.MustCompile(`^https?://([^/]+)`)

// CustomizeDomain swaps the host of rawURL for domain. A rawURL without a
// scheme is treated as an object key and prefixed with https://domain/.
// An empty domain leaves rawURL untouched.
func CustomizeDomain(rawURL, domain string) string {
	domain = strings.TrimSuffix(trimScheme(strings.TrimSpace(domain)), "/")
	if domain == "" {
		return rawURL
	}
	if loc := schemeHost.FindStringSubmatchIndex(rawURL); loc != nil {
		return rawURL[:loc[2]] + domain + rawURL[loc[3]:]
	}
	return "https://" + domain + "/" + strings.TrimLeft(rawURL, "/")
}

func trimScheme(s string) string {
	s = strings.TrimPrefix(s, "https://")
	return strings.TrimPrefix(s, "http://")
}

// domainHost extracts the host part of a configured domain or URL
func domainHost(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	u, err := url.Parse(domain)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// hostMatcher reports URLs whose host is one of a fixed set
type hostMatcher []string

func newHostMatcher(hosts ...string) hostMatcher {
	var m hostMatcher
	for _, h := range hosts {
		if h = domainHost(h); h != "" {
			m = append(m, h)
		}
	}
	return m
}

func (m hostMatcher) IsHosted(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, h := range m {
		if host == h {
			return true
		}
	}
	return false
}

// escapeKey percent-escapes each segment of an object key for use in a URL path
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
