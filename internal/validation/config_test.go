package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/altafino/mdimg-publish/internal/types"
	"github.com/altafino/mdimg-publish/internal/uploader"
)

func validConfig(t *testing.T) *types.Config {
	t.Helper()
	var cfg types.Config
	require.NoError(t, yaml.Unmarshal([]byte(`
meta:
  id: blog
  name: Blog
  enabled: true
publish:
  attachment_folder: images
storage:
  backend: imgur
  settings:
    client_id: abc
logging:
  level: info
  format: text
  output: stderr
`), &cfg))
	return &cfg
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(validConfig(t)))
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		want   string
	}{
		{"missing id", func(c *types.Config) { c.Meta.ID = "" }, "meta.id is required"},
		{"bad id", func(c *types.Config) { c.Meta.ID = "a b" }, "invalid characters"},
		{"negative concurrency", func(c *types.Config) { c.Publish.MaxConcurrent = -1 }, "max_concurrent"},
		{"no backend", func(c *types.Config) { c.Storage.Backend = "" }, "storage.backend is required"},
		{"log format", func(c *types.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log file", func(c *types.Config) { c.Logging.Output = "file" }, "file_path"},
		{"tracking path", func(c *types.Config) { c.Tracking.Enabled = true }, "tracking.storage_path"},
		{"schedule without documents", func(c *types.Config) {
			c.Scheduling.Enabled = true
			c.Scheduling.FrequencyEvery = "hour"
			c.Scheduling.FrequencyAmount = 1
		}, "scheduling.documents"},
		{"schedule frequency", func(c *types.Config) {
			c.Scheduling.Enabled = true
			c.Scheduling.FrequencyEvery = "minute"
			c.Scheduling.FrequencyAmount = 90
			c.Scheduling.Documents = []string{"a.md"}
		}, "must not exceed 60"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.ErrorContains(t, ValidateConfig(cfg), tt.want)
		})
	}
}

func TestValidateStorage(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.Backend = "dropbox"
	assert.ErrorIs(t, ValidateStorage(cfg), uploader.ErrUnknownBackend)

	cfg = validConfig(t)
	cfg.Storage.Backend = "github"
	assert.ErrorIs(t, ValidateStorage(cfg), uploader.ErrInvalidSettings)
}
