package errorlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/altafino/mdimg-publish/internal/types"
	"github.com/altafino/mdimg-publish/internal/utility/u_io"
)

const dateLayout = "2006-01-02"

// FileLogger keeps one JSON file of failures per profile and day
type FileLogger struct {
	cfg         *types.Config
	logger      *slog.Logger
	storagePath string
	now         func() time.Time
	mu          sync.Mutex
}

// NewFileLogger creates a new file-based error logger
func NewFileLogger(cfg *types.Config, logger *slog.Logger) (*FileLogger, error) {
	storagePath := cfg.ErrorLogging.StoragePath

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}

	return &FileLogger{
		cfg:         cfg,
		logger:      logger,
		storagePath: storagePath,
		now:         time.Now,
	}, nil
}

// LogErrors appends failures to today's file
func (f *FileLogger) LogErrors(errs []UploadError) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now().UTC()
	for i := range errs {
		if errs[i].ID == "" {
			errs[i].ID = uuid.NewString()
		}
		if errs[i].ErrorTime.IsZero() {
			errs[i].ErrorTime = now
		}
	}

	filename := fmt.Sprintf("errors_%s_%s.json", f.cfg.Meta.ID, now.Format(dateLayout))
	filePath := filepath.Join(f.storagePath, filename)

	existing := []UploadError{}
	if data, err := os.ReadFile(filePath); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			f.logger.Warn("error log file exists but couldn't be parsed, starting a new one",
				"file", filePath,
				"error", err)
			existing = []UploadError{}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read error log file: %w", err)
	}

	data, err := json.MarshalIndent(append(existing, errs...), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal error log: %w", err)
	}

	if err := u_io.WriteAtomic(filePath, data); err != nil {
		return fmt.Errorf("failed to write error log file: %w", err)
	}

	f.logger.Info("logged upload errors", "count", len(errs), "file", filePath)
	return nil
}

// GetErrors retrieves errors based on filters: config_id, backend, document,
// location or error_type
func (f *FileLogger) GetErrors(filters map[string]string) ([]UploadError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := os.ReadDir(f.storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read error log directory: %w", err)
	}

	var matched []UploadError
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		filePath := filepath.Join(f.storagePath, file.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			f.logger.Warn("failed to read error log file", "file", filePath, "error", err)
			continue
		}

		var fileErrors []UploadError
		if err := json.Unmarshal(data, &fileErrors); err != nil {
			f.logger.Warn("failed to parse error log file", "file", filePath, "error", err)
			continue
		}

		for _, e := range fileErrors {
			if matchesFilters(e, filters) {
				matched = append(matched, e)
			}
		}
	}

	return matched, nil
}

func matchesFilters(e UploadError, filters map[string]string) bool {
	for key, value := range filters {
		var field string
		switch key {
		case "config_id":
			field = e.ConfigID
		case "backend":
			field = e.Backend
		case "document":
			field = e.Document
		case "location":
			field = e.Location
		case "error_type":
			field = e.ErrorType
		default:
			continue
		}
		if field != value {
			return false
		}
	}
	return true
}

// CleanupOldErrors removes day files older than the retention period
func (f *FileLogger) CleanupOldErrors() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	retentionDays := f.cfg.ErrorLogging.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}

	cutoffTime := f.now().UTC().AddDate(0, 0, -retentionDays)
	f.logger.Debug("cleaning up old error logs",
		"retention_days", retentionDays,
		"cutoff_date", cutoffTime.Format(dateLayout))

	files, err := os.ReadDir(f.storagePath)
	if err != nil {
		return fmt.Errorf("failed to read error log directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		fileDate, ok := dateFromName(file.Name())
		if !ok {
			info, err := file.Info()
			if err != nil {
				f.logger.Warn("failed to get file info", "file", file.Name(), "error", err)
				continue
			}
			fileDate = info.ModTime()
		}

		if fileDate.Before(cutoffTime) {
			filePath := filepath.Join(f.storagePath, file.Name())
			if err := os.Remove(filePath); err != nil {
				f.logger.Warn("failed to delete old error log file", "file", filePath, "error", err)
				continue
			}
			f.logger.Debug("deleted old error log file", "file", filePath, "date", fileDate.Format(dateLayout))
		}
	}

	return nil
}

// dateFromName parses the trailing date of errors_<id>_YYYY-MM-DD.json
func dateFromName(name string) (time.Time, bool) {
	name = strings.TrimSuffix(name, ".json")
	if len(name) < len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, name[len(name)-len(dateLayout):])
	return t, err == nil
}

// Close implements the Logger interface
func (f *FileLogger) Close() error {
	return nil
}
