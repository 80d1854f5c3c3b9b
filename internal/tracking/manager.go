package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/altafino/mdimg-publish/internal/publish"
	"github.com/altafino/mdimg-publish/internal/types"
)

// Manager is the upload ledger: every published image URL, by document
type Manager struct {
	cfg     *types.Config
	logger  *slog.Logger
	storage Storage
	mu      sync.Mutex
}

// NewManager creates a ledger for cfg. With tracking disabled it records nothing.
func NewManager(cfg *types.Config, logger *slog.Logger) (*Manager, error) {
	if !cfg.Tracking.Enabled {
		logger.Debug("upload tracking is disabled")
		return &Manager{
			cfg:    cfg,
			logger: logger,
		}, nil
	}

	storage, err := NewFileStorage(cfg.Tracking.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracking storage: %w", err)
	}

	if err := storage.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracking storage: %w", err)
	}

	logger.Debug("initialized upload tracking", "storage_path", cfg.Tracking.StoragePath)

	return &Manager{
		cfg:     cfg,
		logger:  logger,
		storage: storage,
	}, nil
}

// Close cleans up resources
func (m *Manager) Close() error {
	if m.storage != nil {
		return m.storage.Close()
	}
	return nil
}

// RecordUploads implements publish.Ledger. One publish run shares a run ID.
func (m *Manager) RecordUploads(_ context.Context, document string, results []publish.Result) error {
	if m.storage == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	runID := uuid.NewString()
	now := time.Now().UTC()
	records := make([]UploadRecord, 0, len(results))
	for _, r := range results {
		if r.Outcome.Kind != publish.Succeeded {
			continue
		}
		records = append(records, UploadRecord{
			ID:         uuid.NewString(),
			RunID:      runID,
			Document:   document,
			Backend:    m.cfg.Storage.Backend,
			Tokens:     r.Ref.Tokens(),
			Location:   r.Ref.Location,
			RemoteURL:  r.Outcome.URL,
			WebSource:  r.Ref.IsRemoteSource,
			UploadedAt: now,
		})
	}
	if len(records) == 0 {
		return nil
	}

	if err := m.storage.AddRecords(records); err != nil {
		m.logger.Error("failed to track uploads", "document", document, "error", err)
		return err
	}

	m.logger.Debug("tracked uploads", "document", document, "run_id", runID, "count", len(records))
	return nil
}

// History lists ledger records, newest last. An empty document lists all.
func (m *Manager) History(document string) ([]UploadRecord, error) {
	if m.storage == nil {
		return nil, nil
	}
	var filter map[string]string
	if document != "" {
		filter = map[string]string{"document": document}
	}
	return m.storage.GetRecords(filter)
}

// CleanupOldRecords removes records older than the retention period
func (m *Manager) CleanupOldRecords() error {
	if m.storage == nil || m.cfg.Tracking.RetentionDays <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storage.CleanupOldRecords(m.cfg.Tracking.RetentionDays); err != nil {
		m.logger.Error("failed to clean up old records", "error", err)
		return err
	}

	m.logger.Info("cleaned up old upload records", "retention_days", m.cfg.Tracking.RetentionDays)
	return nil
}
