package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/altafino/mdimg-publish/internal/errorlog"
	"github.com/altafino/mdimg-publish/internal/host"
	"github.com/altafino/mdimg-publish/internal/publish"
	"github.com/altafino/mdimg-publish/internal/tracking"
	"github.com/altafino/mdimg-publish/internal/types"
	"github.com/altafino/mdimg-publish/internal/uploader"
	"github.com/altafino/mdimg-publish/internal/validation"
	"github.com/altafino/mdimg-publish/internal/webimage"
)

// Env describes where a session reads documents and writes its output
type Env struct {
	VaultRoot string
	// Export receives the published document instead of the clipboard when set
	Export io.Writer
	// Console receives notices and progress lines
	Console io.Writer
	Quiet   bool
	// Clipboard overrides the system clipboard
	Clipboard publish.Clipboard
}

// Session binds one profile to one vault. A profile whose backend cannot be
// built still yields a session; every publish then fails with
// publish.ErrPublishDisabled.
type Session struct {
	cfg    *types.Config
	env    Env
	logger *slog.Logger

	vault      *host.Vault
	uploader   uploader.Uploader
	downloader *webimage.Downloader
	notifier   *host.ConsoleNotifier
	ledger     *tracking.Manager
	failures   *errorlog.Manager
	disabled   error

	mu      sync.Mutex
	actions map[string]*publish.Action
}

// NewSession validates cfg and builds its backend. Only an unusable vault or
// state directory is returned as an error.
func NewSession(ctx context.Context, cfg *types.Config, env Env, logger *slog.Logger) (*Session, error) {
	vault, err := host.NewVault(env.VaultRoot)
	if err != nil {
		return nil, err
	}

	cfg = withStatePaths(cfg, vault.Root)
	s := &Session{
		cfg:        cfg,
		env:        env,
		logger:     logger.With("config_id", cfg.Meta.ID),
		vault:      vault,
		downloader: webimage.NewDownloader(logger),
		notifier:   host.NewConsoleNotifier(env.Console, env.Quiet),
		actions:    make(map[string]*publish.Action),
	}

	if s.ledger, err = tracking.NewManager(cfg, s.logger); err != nil {
		return nil, err
	}
	if s.failures, err = errorlog.NewManager(cfg, s.logger); err != nil {
		s.ledger.Close()
		return nil, err
	}

	if err := validation.ValidateConfig(cfg); err != nil {
		s.disable(err)
	} else if up, err := uploader.Build(ctx, cfg.Storage.Backend, &cfg.Storage.Settings, uploader.Deps{Logger: s.logger}); err != nil {
		s.disable(err)
	} else {
		s.uploader = up
	}

	s.cleanup()
	return s, nil
}

func (s *Session) disable(err error) {
	s.disabled = err
	s.logger.Error("publishing disabled", "backend", s.cfg.Storage.Backend, "error", err)
	s.notifier.Error(fmt.Sprintf("Publishing disabled: %v", err))
}

func (s *Session) cleanup() {
	if err := s.ledger.CleanupOldRecords(); err != nil {
		s.logger.Warn("ledger cleanup failed", "error", err)
	}
	if err := s.failures.CleanupOldErrors(); err != nil {
		s.logger.Warn("failure log cleanup failed", "error", err)
	}
}

// withStatePaths anchors relative ledger and failure-log paths at the vault root
func withStatePaths(cfg *types.Config, root string) *types.Config {
	c := *cfg
	if c.Tracking.StoragePath != "" && !filepath.IsAbs(c.Tracking.StoragePath) {
		c.Tracking.StoragePath = filepath.Join(root, c.Tracking.StoragePath)
	}
	if c.ErrorLogging.StoragePath != "" && !filepath.IsAbs(c.ErrorLogging.StoragePath) {
		c.ErrorLogging.StoragePath = filepath.Join(root, c.ErrorLogging.StoragePath)
	}
	return &c
}

// Config returns the profile the session was built from
func (s *Session) Config() *types.Config {
	return s.cfg
}

// Enabled reports whether the backend was built
func (s *Session) Enabled() bool {
	return s.disabled == nil
}

// Action returns the publish action for document, creating it on first use.
// Repeated calls return the same action so overlapping runs are refused.
func (s *Session) Action(document string) (*publish.Action, error) {
	if s.disabled != nil {
		return publish.NewDisabledAction(s.disabled, s.logger), nil
	}

	doc, err := host.OpenDocument(s.vault, document)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.actions[doc.Path]; ok {
		return a, nil
	}

	opts := PublishOptions(s.cfg.Publish)
	coord := &publish.Coordinator{
		Uploader:      s.uploader,
		Files:         s.vault,
		Downloader:    s.downloader,
		Notifier:      s.notifier,
		Logger:        s.logger,
		MaxConcurrent: opts.MaxConcurrent,
		UploadTimeout: opts.UploadTimeout,
		ContextPath:   s.vault.ContextPath,
	}
	if opts.ShowProgress && !s.env.Quiet {
		coord.Observer = host.NewTerminalProgress(s.env.Console)
	}

	deps := publish.ActionDeps{
		Coordinator: coord,
		Document:    doc,
		Notifier:    s.notifier,
		Ledger:      s.ledger,
		Failures:    s.failures,
		Logger:      s.logger,
	}
	if hc, ok := s.uploader.(uploader.HostedChecker); ok {
		deps.Hosted = hc
	}
	switch {
	case s.env.Export != nil:
		deps.Output = s.env.Export
		opts.CopyToClipboard = false
	case s.env.Clipboard != nil:
		deps.Clipboard = s.env.Clipboard
	default:
		deps.Clipboard = host.SystemClipboard{}
	}

	a := publish.NewAction(deps, opts)
	s.actions[doc.Path] = a
	return a, nil
}

// DocumentPath returns the file-system path of document
func (s *Session) DocumentPath(document string) (string, error) {
	doc, err := host.OpenDocument(s.vault, document)
	if err != nil {
		return "", err
	}
	return doc.FullPath()
}

// Publish runs the publish action for document
func (s *Session) Publish(ctx context.Context, document string) (publish.Summary, error) {
	a, err := s.Action(document)
	if err != nil {
		return publish.Summary{}, err
	}
	return a.Publish(ctx)
}

// History lists ledger records for document, or all records when empty
func (s *Session) History(document string) ([]tracking.UploadRecord, error) {
	if document != "" {
		doc, err := host.OpenDocument(s.vault, document)
		if err != nil {
			return nil, err
		}
		document = doc.Path
	}
	return s.ledger.History(document)
}

// Failures lists logged upload failures for document, or all when empty
func (s *Session) Failures(document string) ([]errorlog.UploadError, error) {
	filters := map[string]string{}
	if document != "" {
		doc, err := host.OpenDocument(s.vault, document)
		if err != nil {
			return nil, err
		}
		filters["document"] = doc.Path
	}
	return s.failures.GetErrors(filters)
}

// Close releases the ledger and failure log
func (s *Session) Close() error {
	var firstErr error
	if err := s.ledger.Close(); err != nil {
		firstErr = err
	}
	if err := s.failures.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// PublishOptions maps profile settings to publish options
func PublishOptions(p types.PublishConfig) publish.Options {
	return publish.Options{
		AttachmentFolder:  p.AttachmentFolder,
		DeriveAltText:     p.AltFromFilename,
		ReplaceOriginal:   p.ReplaceOriginal,
		StripFrontMatter:  p.StripFrontMatter,
		AllowRemoteUpload: p.AllowRemoteUpload,
		ShowProgress:      p.ProgressEnabled(),
		CopyToClipboard:   p.ClipboardEnabled(),
		MaxConcurrent:     p.MaxConcurrent,
		UploadTimeout:     p.UploadTimeout,
	}
}
