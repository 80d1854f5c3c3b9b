package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/altafino/mdimg-publish/internal/utility/u_io"
)

// FileStorage implements the Storage interface with a JSON file
type FileStorage struct {
	basePath    string
	recordsPath string
	mu          sync.RWMutex
	initialized bool
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(basePath string) (*FileStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	return &FileStorage{
		basePath:    basePath,
		recordsPath: filepath.Join(basePath, "uploads.json"),
	}, nil
}

// Initialize prepares the storage for use
func (fs *FileStorage) Initialize() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if _, err := os.Stat(fs.recordsPath); os.IsNotExist(err) {
		if err := fs.saveRecords([]UploadRecord{}); err != nil {
			return fmt.Errorf("failed to create records file: %w", err)
		}
	}

	fs.initialized = true
	return nil
}

// Close cleans up any resources
func (fs *FileStorage) Close() error {
	return nil
}

// AddRecords appends records
func (fs *FileStorage) AddRecords(records []UploadRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.initialized {
		return ErrStorageNotInitialized
	}

	existing, err := fs.loadRecordsLocked()
	if err != nil {
		return err
	}
	return fs.saveRecords(append(existing, records...))
}

// GetRecords retrieves records, optionally filtered
func (fs *FileStorage) GetRecords(filter map[string]string) ([]UploadRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.initialized {
		return nil, ErrStorageNotInitialized
	}

	records, err := fs.loadRecordsLocked()
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return records, nil
	}

	var filtered []UploadRecord
	for _, record := range records {
		if matches(record, filter) {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

func matches(record UploadRecord, filter map[string]string) bool {
	for key, value := range filter {
		var field string
		switch key {
		case "document":
			field = record.Document
		case "backend":
			field = record.Backend
		case "location":
			field = record.Location
		case "run_id":
			field = record.RunID
		default:
			continue
		}
		if field != value {
			return false
		}
	}
	return true
}

// CleanupOldRecords removes records older than the specified retention period
func (fs *FileStorage) CleanupOldRecords(retentionDays int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.initialized {
		return ErrStorageNotInitialized
	}

	records, err := fs.loadRecordsLocked()
	if err != nil {
		return err
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	kept := []UploadRecord{}
	for _, record := range records {
		if record.UploadedAt.After(cutoffTime) {
			kept = append(kept, record)
		}
	}

	return fs.saveRecords(kept)
}

// loadRecordsLocked loads all records from the file (assumes lock is held)
func (fs *FileStorage) loadRecordsLocked() ([]UploadRecord, error) {
	data, err := os.ReadFile(fs.recordsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	if len(data) == 0 {
		return []UploadRecord{}, nil
	}

	var records []UploadRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file: %w", err)
	}

	return records, nil
}

// saveRecords replaces the records file
func (fs *FileStorage) saveRecords(records []UploadRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize records: %w", err)
	}

	if err := u_io.WriteAtomic(fs.recordsPath, data); err != nil {
		return fmt.Errorf("failed to write records file: %w", err)
	}

	return nil
}
