package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/altafino/mdimg-publish/internal/types"
	"github.com/altafino/mdimg-publish/internal/uploader"
)

// ValidateConfig performs validation on a single profile
func ValidateConfig(cfg *types.Config) error {
	if err := validateMeta(cfg); err != nil {
		return fmt.Errorf("meta validation failed: %w", err)
	}

	if err := validatePublish(cfg); err != nil {
		return fmt.Errorf("publish validation failed: %w", err)
	}

	if err := ValidateStorage(cfg); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}

	if err := validateLogging(cfg); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	if err := validateTracking(cfg); err != nil {
		return fmt.Errorf("tracking validation failed: %w", err)
	}

	if err := validateScheduling(cfg); err != nil {
		return fmt.Errorf("scheduling validation failed: %w", err)
	}

	return nil
}

func validateMeta(cfg *types.Config) error {
	if cfg.Meta.ID == "" {
		return fmt.Errorf("meta.id is required")
	}

	if !isValidID(cfg.Meta.ID) {
		return fmt.Errorf("meta.id contains invalid characters (use only alphanumeric, dash, underscore)")
	}

	if cfg.Meta.Name == "" {
		return fmt.Errorf("meta.name is required")
	}

	return nil
}

func validatePublish(cfg *types.Config) error {
	if cfg.Publish.MaxConcurrent < 0 {
		return fmt.Errorf("publish.max_concurrent must not be negative")
	}

	if cfg.Publish.UploadTimeout < 0 {
		return fmt.Errorf("publish.upload_timeout must not be negative")
	}

	return nil
}

// ValidateStorage checks that the backend exists and its settings decode and validate.
// Errors wrap uploader.ErrUnknownBackend or uploader.ErrInvalidSettings.
func ValidateStorage(cfg *types.Config) error {
	if cfg.Storage.Backend == "" {
		return fmt.Errorf("storage.backend is required")
	}

	if _, err := uploader.DecodeSettings(cfg.Storage.Backend, &cfg.Storage.Settings); err != nil {
		return err
	}

	return nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "dev"}
	logOutputs = []string{"stdout", "stderr", "file"}
)

func validateLogging(cfg *types.Config) error {
	l := cfg.Logging
	switch {
	case !slices.Contains(logLevels, l.Level):
		return fmt.Errorf("logging.level must be one of: %s", strings.Join(logLevels, ", "))
	case !slices.Contains(logFormats, l.Format):
		return fmt.Errorf("logging.format must be one of: %s", strings.Join(logFormats, ", "))
	case !slices.Contains(logOutputs, l.Output):
		return fmt.Errorf("logging.output must be one of: %s", strings.Join(logOutputs, ", "))
	case l.Output == "file" && l.FilePath == "":
		return fmt.Errorf("logging.file_path is required when output is 'file'")
	}
	return nil
}

func validateTracking(cfg *types.Config) error {
	if cfg.Tracking.Enabled {
		if cfg.Tracking.StoragePath == "" {
			return fmt.Errorf("tracking.storage_path is required when tracking is enabled")
		}
		if cfg.Tracking.RetentionDays < 0 {
			return fmt.Errorf("tracking.retention_days must not be negative")
		}
	}

	if cfg.ErrorLogging.Enabled {
		if cfg.ErrorLogging.StoragePath == "" {
			return fmt.Errorf("error_logging.storage_path is required when error logging is enabled")
		}
		if cfg.ErrorLogging.RetentionDays < 0 {
			return fmt.Errorf("error_logging.retention_days must not be negative")
		}
	}

	return nil
}

// frequencyLimits caps frequency_amount per unit
var frequencyLimits = map[string]int{
	"minute": 60,
	"hour":   24,
	"day":    31,
	"week":   52,
	"month":  12,
}

func validateScheduling(cfg *types.Config) error {
	sc := cfg.Scheduling
	if !sc.Enabled {
		return nil
	}

	limit, ok := frequencyLimits[sc.FrequencyEvery]
	if !ok {
		return fmt.Errorf("scheduling.frequency_every must be one of: minute, hour, day, week, month")
	}
	if sc.FrequencyAmount < 1 {
		return fmt.Errorf("scheduling.frequency_amount must be greater than 0")
	}
	if sc.FrequencyAmount > limit {
		return fmt.Errorf("scheduling.frequency_amount must not exceed %d for %s frequency", limit, sc.FrequencyEvery)
	}

	if len(sc.Documents) == 0 {
		return fmt.Errorf("scheduling.documents must list at least one document")
	}

	var startAt time.Time
	if !sc.StartNow && sc.StartAt != "" {
		var err error
		if startAt, err = time.Parse(time.RFC3339, sc.StartAt); err != nil {
			return fmt.Errorf("scheduling.start_at must be RFC3339 (e.g. 2006-01-02T15:04:05Z)")
		}
	}
	if sc.StopAt != "" {
		stopAt, err := time.Parse(time.RFC3339, sc.StopAt)
		if err != nil {
			return fmt.Errorf("scheduling.stop_at must be RFC3339 (e.g. 2006-01-02T15:04:05Z)")
		}
		if !startAt.IsZero() && stopAt.Before(startAt) {
			return fmt.Errorf("scheduling.stop_at must be after start_at")
		}
	}

	return nil
}

func isValidID(id string) bool {
	for _, r := range id {
		if !isValidIDChar(r) {
			return false
		}
	}
	return true
}

func isValidIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' ||
		r == '_'
}
