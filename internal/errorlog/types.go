package errorlog

import (
	"time"
)

// UploadError is one image that could not be published
type UploadError struct {
	ID        string    `json:"id"`
	ConfigID  string    `json:"config_id"`
	Backend   string    `json:"backend"`
	Document  string    `json:"document"`
	Token     string    `json:"token"`
	Location  string    `json:"location"`
	WebSource bool      `json:"web_source,omitempty"`
	ErrorTime time.Time `json:"error_time"`
	ErrorType string    `json:"error_type"` // not_found, read_error, remote_error
	ErrorMsg  string    `json:"error_message"`
}

// Logger defines the interface for upload failure logging
type Logger interface {
	// LogErrors records failures of one publish run
	LogErrors(errs []UploadError) error

	// GetErrors retrieves errors based on filters
	GetErrors(filters map[string]string) ([]UploadError, error)

	// CleanupOldErrors removes errors older than the retention period
	CleanupOldErrors() error

	// Close releases any resources used by the logger
	Close() error
}
