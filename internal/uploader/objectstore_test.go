package uploader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPut struct {
	path        string
	contentType string
	body        string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var mu sync.Mutex
	var puts []recordedPut

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusOK)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: string(body)})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func testDeps() Deps {
	return Deps{
		Now:    func() time.Time { return time.Date(2023, 6, 8, 0, 0, 0, 0, time.UTC) },
		Random: fixedRandom,
	}
}

func TestR2UploadWithCustomDomain(t *testing.T) {
	server, puts := fakeS3(t)

	up, err := Build(context.Background(), "cloudflare-r2", settingsNode(t, `
access_key_id: ak
secret_access_key: sk
endpoint: `+server.URL+`
bucket: notes
path: /{year}/{mon}/{day}/{filename}
custom_domain: https://cdn.test
`), testDeps())
	require.NoError(t, err)

	link, err := up.Upload(context.Background(), []byte("png"), "pic.png", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/2023/06/08/pic.png", link)

	got := puts()
	require.Len(t, got, 1)
	assert.Equal(t, "/notes/2023/06/08/pic.png", got[0].path)

	u, _ := url.Parse(link)
	assert.True(t, up.(HostedChecker).IsHosted(u))
}

func TestS3EndpointOverrideURL(t *testing.T) {
	server, puts := fakeS3(t)

	up, err := Build(context.Background(), "aws-s3", settingsNode(t, `
access_key_id: ak
secret_access_key: sk
region: us-east-1
bucket: media
endpoint: `+server.URL+`
`), testDeps())
	require.NoError(t, err)

	link, err := up.Upload(context.Background(), []byte("png"), "a b.png", "")
	require.NoError(t, err)

	host, _, _ := splitEndpoint(server.URL)
	assert.Equal(t, "http://"+host+"/media/a%20b.png", link)
	require.Len(t, puts(), 1)
}

func TestSplitEndpoint(t *testing.T) {
	host, secure, err := splitEndpoint("https://abc.r2.cloudflarestorage.com/")
	require.NoError(t, err)
	assert.Equal(t, "abc.r2.cloudflarestorage.com", host)
	assert.True(t, secure)

	host, secure, err = splitEndpoint("http://localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	_, _, err = splitEndpoint(" ")
	assert.Error(t, err)
}

func TestPublicURLs(t *testing.T) {
	cases := map[string]string{
		"aws-s3":      "https://b.s3.eu-west-1.amazonaws.com/k.png",
		"aliyun-oss":  "https://b.oss-cn-hangzhou.aliyuncs.com/k.png",
		"tencent-cos": "https://b.cos.ap-guangzhou.myqcloud.com/k.png",
	}
	settings := map[string]Settings{
		"aws-s3":      &S3Settings{AccessKeyID: "a", SecretAccessKey: "s", Region: "eu-west-1", Bucket: "b"},
		"aliyun-oss":  &OSSSettings{AccessKeyID: "a", AccessKeySecret: "s", Region: "oss-cn-hangzhou", Bucket: "b"},
		"tencent-cos": &COSSettings{SecretID: "a", SecretKey: "s", Region: "ap-guangzhou", Bucket: "b"},
	}
	for id, want := range cases {
		d, ok := Lookup(id)
		require.True(t, ok)
		up, err := d.Build(context.Background(), settings[id], testDeps().withDefaults())
		require.NoError(t, err, id)
		store := up.(*objectStore)
		assert.Equal(t, want, store.profile.publicURL("k.png"), id)

		u, _ := url.Parse(want)
		assert.True(t, store.IsHosted(u), id)
	}
}

func TestKodoUsesCustomDomainAndUnderscores(t *testing.T) {
	d, _ := Lookup("qiniu-kodo")
	up, err := d.Build(context.Background(), &KodoSettings{
		AccessKey: "a", SecretKey: "s", Region: "cn-east-1", Bucket: "b", CustomDomain: "img.example.cn",
	}, testDeps().withDefaults())
	require.NoError(t, err)

	store := up.(*objectStore)
	assert.True(t, store.profile.underscoreSpaces)
	assert.Equal(t, "https://img.example.cn/x.png", CustomizeDomain(store.profile.publicURL("x.png"), store.profile.customDomain))

	u, _ := url.Parse("https://img.example.cn/x.png")
	assert.True(t, store.IsHosted(u))
}

func TestB2SetsImageContentType(t *testing.T) {
	d, _ := Lookup("backblaze-b2")
	up, err := d.Build(context.Background(), &B2Settings{
		AccessKeyID: "a", SecretAccessKey: "s", Region: "us-west-004", Bucket: "b",
	}, testDeps().withDefaults())
	require.NoError(t, err)

	store := up.(*objectStore)
	assert.True(t, store.profile.imageContentType)
	assert.Equal(t, "https://s3.us-west-004.backblazeb2.com/b/k.png", store.profile.publicURL("k.png"))
}
