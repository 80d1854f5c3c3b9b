package errorlog

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altafino/mdimg-publish/internal/publish"
	"github.com/altafino/mdimg-publish/internal/types"
)

func testConfig(t *testing.T) *types.Config {
	cfg := &types.Config{}
	cfg.Meta.ID = "blog"
	cfg.Storage.Backend = "imgur"
	cfg.ErrorLogging.Enabled = true
	cfg.ErrorLogging.StoragePath = filepath.Join(t.TempDir(), "errors")
	cfg.ErrorLogging.RetentionDays = 7
	return cfg
}

func TestRecordFailures(t *testing.T) {
	m, err := NewManager(testConfig(t), slog.Default())
	require.NoError(t, err)

	results := []publish.Result{
		{Ref: &publish.ImageReference{SourceToken: "![[a.png]]", Location: "images/a.png"}, Outcome: publish.Success("https://x/a.png")},
		{Ref: &publish.ImageReference{SourceToken: "![[b.png]]", Location: "images/b.png"}, Outcome: publish.NotFound(errors.New("can not locate images/b.png"))},
		{Ref: &publish.ImageReference{SourceToken: "![[c.png]]", Location: "images/c.png"}, Outcome: publish.RemoteFailed(errors.New("rate limited"))},
	}
	require.NoError(t, m.RecordFailures(context.Background(), "post.md", results))

	all, err := m.GetErrors(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "blog", all[0].ConfigID)
	assert.Equal(t, "imgur", all[0].Backend)
	assert.NotEmpty(t, all[0].ID)

	remote, err := m.GetErrors(map[string]string{"error_type": "remote_error"})
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, "images/c.png", remote[0].Location)
	assert.Contains(t, remote[0].ErrorMsg, "rate limited")
}

func TestDisabledManager(t *testing.T) {
	cfg := testConfig(t)
	cfg.ErrorLogging.Enabled = false
	m, err := NewManager(cfg, slog.Default())
	require.NoError(t, err)

	require.NoError(t, m.RecordFailures(context.Background(), "post.md", []publish.Result{
		{Ref: &publish.ImageReference{}, Outcome: publish.NotFound(errors.New("x"))},
	}))
	errs, err := m.GetErrors(nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestCleanupOldErrors(t *testing.T) {
	cfg := testConfig(t)
	fl, err := NewFileLogger(cfg, slog.Default())
	require.NoError(t, err)
	fl.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }

	old := filepath.Join(cfg.ErrorLogging.StoragePath, "errors_blog_2024-03-01.json")
	recent := filepath.Join(cfg.ErrorLogging.StoragePath, "errors_blog_2024-03-19.json")
	require.NoError(t, os.WriteFile(old, []byte("[]"), 0644))
	require.NoError(t, os.WriteFile(recent, []byte("[]"), 0644))

	require.NoError(t, fl.CleanupOldErrors())

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}
