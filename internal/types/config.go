package types

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents one publishing profile
type Config struct {
	// Meta information for the configuration
	Meta struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
		Enabled     bool   `yaml:"enabled"`
		Template    string `yaml:"template,omitempty"` // Name of the template to use
	} `yaml:"meta"`

	Publish PublishConfig `yaml:"publish"`

	Storage StorageConfig `yaml:"storage"`

	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"` // text, json or dev
		Output        string `yaml:"output"`
		FilePath      string `yaml:"file_path"`
		IncludeCaller bool   `yaml:"include_caller"`
	} `yaml:"logging"`

	Tracking struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"tracking"`

	ErrorLogging struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"error_logging"`

	Scheduling struct {
		Enabled         bool     `yaml:"enabled"`
		FrequencyEvery  string   `yaml:"frequency_every"` // minute, hour, day, week
		FrequencyAmount int      `yaml:"frequency_amount"`
		StartNow        bool     `yaml:"start_now"`
		StartAt         string   `yaml:"start_at"` // UTC DateTime
		StopAt          string   `yaml:"stop_at"`  // UTC DateTime
		Vault           string   `yaml:"vault"`
		Documents       []string `yaml:"documents"`
	} `yaml:"scheduling"`
}

// PublishConfig holds the per-invocation publishing flags
type PublishConfig struct {
	AttachmentFolder  string        `yaml:"attachment_folder"`
	AltFromFilename   bool          `yaml:"alt_from_filename"`
	ReplaceOriginal   bool          `yaml:"replace_original"`
	StripFrontMatter  bool          `yaml:"strip_front_matter"`
	AllowRemoteUpload bool          `yaml:"allow_remote_upload"`
	ShowProgress      *bool         `yaml:"show_progress,omitempty"`
	CopyToClipboard   *bool         `yaml:"copy_to_clipboard,omitempty"`
	MaxConcurrent     int           `yaml:"max_concurrent"`
	UploadTimeout     time.Duration `yaml:"upload_timeout"`
}

// ProgressEnabled reports whether progress output is on; unset means on.
func (p PublishConfig) ProgressEnabled() bool {
	return p.ShowProgress == nil || *p.ShowProgress
}

// ClipboardEnabled reports whether the export goes to the clipboard; unset means on.
func (p PublishConfig) ClipboardEnabled() bool {
	return p.CopyToClipboard == nil || *p.CopyToClipboard
}

// StorageConfig selects a backend and carries its settings undecoded.
// The settings node is decoded into the backend's own settings type by the
// uploader registry, so each backend only ever sees its own fields.
type StorageConfig struct {
	Backend  string    `yaml:"backend"`
	Settings yaml.Node `yaml:"settings"`
}
