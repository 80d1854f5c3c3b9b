package uploader

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	up, err := Build(context.Background(), "local", settingsNode(t,
		"directory: "+dir+"\npublic_url: https://static.test/img/\npath: \"{year}/{filename}\"\n"),
		Deps{Now: func() time.Time { return time.Date(2023, 6, 8, 0, 0, 0, 0, time.UTC) }})
	require.NoError(t, err)

	first, err := up.Upload(context.Background(), []byte("one"), "my pic.png", "")
	require.NoError(t, err)
	assert.Equal(t, "https://static.test/img/2023/my%20pic.png", first)

	second, err := up.Upload(context.Background(), []byte("two"), "my pic.png", "")
	require.NoError(t, err)
	assert.Equal(t, "https://static.test/img/2023/my%20pic_1.png", second)

	data, err := os.ReadFile(filepath.Join(dir, "2023", "my pic.png"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	u, _ := url.Parse(first)
	assert.True(t, up.(HostedChecker).IsHosted(u))
}

func TestLocalSettingsValidate(t *testing.T) {
	assert.Error(t, (&LocalSettings{Directory: "x", PublicURL: "static/img"}).Validate())
	assert.NoError(t, (&LocalSettings{Directory: "x", PublicURL: "http://localhost:8080"}).Validate())
}
