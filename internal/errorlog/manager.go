package errorlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/altafino/mdimg-publish/internal/publish"
	"github.com/altafino/mdimg-publish/internal/types"
)

// Manager handles upload failure logging
type Manager struct {
	cfg    *types.Config
	logger *slog.Logger
	impl   Logger
}

// NewManager creates a failure log for cfg
func NewManager(cfg *types.Config, logger *slog.Logger) (*Manager, error) {
	if !cfg.ErrorLogging.Enabled {
		logger.Debug("upload error logging is disabled")
		return &Manager{
			cfg:    cfg,
			logger: logger,
			impl:   &noopLogger{},
		}, nil
	}

	impl, err := NewFileLogger(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:    cfg,
		logger: logger,
		impl:   impl,
	}, nil
}

// RecordFailures implements publish.FailureLog
func (m *Manager) RecordFailures(_ context.Context, document string, results []publish.Result) error {
	now := time.Now().UTC()
	var errs []UploadError
	for _, r := range results {
		if !r.Outcome.Failed() {
			continue
		}
		msg := ""
		if r.Outcome.Err != nil {
			msg = r.Outcome.Err.Error()
		}
		errs = append(errs, UploadError{
			ConfigID:  m.cfg.Meta.ID,
			Backend:   m.cfg.Storage.Backend,
			Document:  document,
			Token:     r.Ref.SourceToken,
			Location:  r.Ref.Location,
			WebSource: r.Ref.IsRemoteSource,
			ErrorTime: now,
			ErrorType: r.Outcome.Kind.String(),
			ErrorMsg:  msg,
		})
	}
	if len(errs) == 0 {
		return nil
	}

	m.logger.Debug("logging upload errors",
		"document", document,
		"count", len(errs),
		"storage_path", m.cfg.ErrorLogging.StoragePath)

	return m.impl.LogErrors(errs)
}

// GetErrors retrieves errors based on filters
func (m *Manager) GetErrors(filters map[string]string) ([]UploadError, error) {
	return m.impl.GetErrors(filters)
}

// CleanupOldErrors removes errors older than the retention period
func (m *Manager) CleanupOldErrors() error {
	return m.impl.CleanupOldErrors()
}

// Close releases any resources used by the logger
func (m *Manager) Close() error {
	return m.impl.Close()
}

// noopLogger is used when error logging is disabled
type noopLogger struct{}

func (n *noopLogger) LogErrors([]UploadError) error                        { return nil }
func (n *noopLogger) GetErrors(map[string]string) ([]UploadError, error) { return nil, nil }
func (n *noopLogger) CleanupOldErrors() error                              { return nil }
func (n *noopLogger) Close() error                                         { return nil }
