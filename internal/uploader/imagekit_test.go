package uploader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagekitUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/upload", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "private", user)
		assert.Empty(t, pass)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "pic.png", r.FormValue("fileName"))
		assert.Equal(t, "/blog", r.FormValue("folder"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fileId":"f1","name":"pic.png","url":"https://ik.imagekit.io/me/blog/pic.png"}`))
	}))
	defer server.Close()

	up, err := Build(context.Background(), "imagekit", settingsNode(t,
		"public_key: public\nprivate_key: private\nendpoint: https://ik.imagekit.io/me\npath: blog/{filename}\nupload_base: "+server.URL+"\n"),
		Deps{})
	require.NoError(t, err)

	link, err := up.Upload(context.Background(), []byte("x"), "pic.png", "")
	require.NoError(t, err)
	assert.Equal(t, "https://ik.imagekit.io/me/blog/pic.png", link)

	u, _ := url.Parse(link)
	assert.True(t, up.(HostedChecker).IsHosted(u))
}

func TestImagekitUploadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Your account cannot be authenticated."}`))
	}))
	defer server.Close()

	up, err := Build(context.Background(), "imagekit", settingsNode(t,
		"public_key: p\nprivate_key: k\nendpoint: https://ik.imagekit.io/me\nupload_base: "+server.URL+"\n"), Deps{})
	require.NoError(t, err)

	_, err = up.Upload(context.Background(), []byte("x"), "pic.png", "")
	assert.ErrorContains(t, err, "cannot be authenticated")
}
