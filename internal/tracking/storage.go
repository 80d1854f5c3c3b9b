package tracking

import (
	"errors"
	"time"
)

// UploadRecord is one image published to a backend
type UploadRecord struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Document   string    `json:"document"`
	Backend    string    `json:"backend"`
	Tokens     []string  `json:"tokens"` // every spelling in the document, primary first
	Location   string    `json:"location"`
	RemoteURL  string    `json:"remote_url"`
	WebSource  bool      `json:"web_source,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Storage persists upload records
type Storage interface {
	// Initialize prepares the storage for use
	Initialize() error

	// Close cleans up any resources used by the storage
	Close() error

	// AddRecords appends records in one write
	AddRecords(records []UploadRecord) error

	// GetRecords retrieves all records, optionally filtered by
	// document, backend, location or run_id
	GetRecords(filter map[string]string) ([]UploadRecord, error)

	// CleanupOldRecords removes records older than the specified retention period
	CleanupOldRecords(retentionDays int) error
}

// Common errors
var (
	ErrStorageNotInitialized = errors.New("storage not initialized")
)
