package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/altafino/mdimg-publish/internal/uploader"
)

// State is a phase of the publish action
type State int

const (
	Idle State = iota
	Extracting
	Uploading
	Rewriting
	Finalizing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Extracting:
		return "extracting"
	case Uploading:
		return "uploading"
	case Rewriting:
		return "rewriting"
	case Finalizing:
		return "finalizing"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateListener is told about every transition
type StateListener func(from, to State)

// Document is the editable text being published
type Document interface {
	ActiveText() (string, error)
	SetActiveText(text string) error
	Context() DocumentContext
}

// Clipboard receives the exported text
type Clipboard interface {
	WriteText(text string) error
}

// Ledger records successful uploads
type Ledger interface {
	RecordUploads(ctx context.Context, document string, results []Result) error
}

// FailureLog records failed uploads
type FailureLog interface {
	RecordFailures(ctx context.Context, document string, results []Result) error
}

// ActionDeps are the collaborators of an Action
type ActionDeps struct {
	Coordinator *Coordinator
	Document    Document
	Clipboard   Clipboard
	// Output additionally receives the exported text
	Output   io.Writer
	Notifier Notifier
	Hosted   uploader.HostedChecker
	Ledger   Ledger
	Failures FailureLog
	Logger   *slog.Logger
	Listener StateListener
	Now      func() time.Time
}

// Summary describes one publish run
type Summary struct {
	Document        string
	References      int
	Skipped         []Skip
	Results         []Result
	Counts          Counts
	DocumentChanged bool
	Copied          bool
}

// Action publishes the active document: extract, upload, rewrite, finalize
type Action struct {
	deps     ActionDeps
	opts     Options
	disabled error

	mu    sync.Mutex
	state State
}

// NewAction creates an enabled action
func NewAction(deps ActionDeps, opts Options) *Action {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Action{deps: deps, opts: opts}
}

// NewDisabledAction creates an action whose every Publish fails with
// ErrPublishDisabled wrapping cause
func NewDisabledAction(cause error, logger *slog.Logger) *Action {
	a := NewAction(ActionDeps{Logger: logger}, Options{})
	a.disabled = cause
	return a
}

// State returns the current state
func (a *Action) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Enabled reports whether the backend was built successfully
func (a *Action) Enabled() bool {
	return a.disabled == nil
}

func (a *Action) transition(to State) {
	a.mu.Lock()
	from := a.state
	a.state = to
	a.mu.Unlock()

	a.deps.Logger.Debug("publish state changed", "from", from.String(), "to", to.String())
	if a.deps.Listener != nil {
		a.deps.Listener(from, to)
	}
}

// begin claims the action for one run and moves it to Extracting. Failed is
// terminal for a run, not for the action.
func (a *Action) begin() bool {
	a.mu.Lock()
	from := a.state
	if from != Idle && from != Failed {
		a.mu.Unlock()
		return false
	}
	a.state = Extracting
	a.mu.Unlock()

	a.deps.Logger.Debug("publish state changed", "from", from.String(), "to", Extracting.String())
	if a.deps.Listener != nil {
		a.deps.Listener(from, Extracting)
	}
	return true
}

func (a *Action) fail(err error) error {
	a.transition(Failed)
	return err
}

// Publish runs one publish of the active document
func (a *Action) Publish(ctx context.Context) (Summary, error) {
	if a.disabled != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrPublishDisabled, a.disabled)
	}
	if !a.begin() {
		return Summary{}, ErrPublishInProgress
	}

	logger := a.deps.Logger
	notifier := a.deps.Notifier

	docCtx := a.deps.Document.Context()
	if !docCtx.Active {
		notifier.Error("No active document to publish")
		return Summary{}, a.fail(ErrNoActiveDocument)
	}
	summary := Summary{Document: docCtx.Path}

	text, err := a.deps.Document.ActiveText()
	if err != nil {
		notifier.Error("Failed to read the document")
		return summary, a.fail(fmt.Errorf("failed to read document %s: %w", docCtx.Path, err))
	}

	opts := a.opts
	fm, _, err := SplitFrontMatter(text)
	if err != nil {
		logger.Warn("ignoring front matter overrides", "document", docCtx.Path, "error", err)
	} else if fm.Present {
		opts = fm.Overrides.Apply(opts)
	}

	extraction := Extract(text, ExtractOptions{
		AttachmentFolder:  opts.AttachmentFolder,
		Document:          docCtx,
		AllowRemoteUpload: opts.AllowRemoteUpload,
		Hosted:            a.deps.Hosted,
		Now:               a.deps.Now,
	})
	summary.Skipped = extraction.Skipped
	for _, s := range extraction.Skipped {
		logger.Info("image skipped", "token", s.Token, "reason", s.Reason)
	}

	a.transition(Uploading)
	batch := a.deps.Coordinator.Run(ctx, extraction.References)
	summary.Results = batch.Results
	summary.Counts = batch.Counts()
	// references that settled on a shared file were merged by the coordinator
	summary.References = len(batch.Results)

	a.transition(Rewriting)
	rewritten := Rewrite(text, batch, RewriteOptions{
		DeriveAltText:    opts.DeriveAltText,
		ReplaceOriginal:  opts.ReplaceOriginal,
		StripFrontMatter: opts.StripFrontMatter,
	})

	a.transition(Finalizing)
	a.record(ctx, docCtx.Path, batch)

	if summary.References > 0 && summary.Counts.Succeeded == 0 {
		if batch.NothingToDo() {
			notifier.Error(fmt.Sprintf("Nothing to upload, none of %d image(s) could be read", summary.References))
		} else {
			notifier.Error(fmt.Sprintf("No image uploaded, %d of %d failed", summary.Counts.Failed, summary.References))
		}
		return summary, a.fail(ErrNothingToPublish)
	}

	if rewritten.DocumentChanged {
		if err := a.deps.Document.SetActiveText(rewritten.Document); err != nil {
			notifier.Error("Failed to update the document")
			return summary, a.fail(fmt.Errorf("failed to write document %s: %w", docCtx.Path, err))
		}
		summary.DocumentChanged = true
	}

	if opts.CopyToClipboard && a.deps.Clipboard != nil {
		if err := a.deps.Clipboard.WriteText(rewritten.Export); err != nil {
			logger.Warn("failed to copy to clipboard", "error", err)
			notifier.Warn("Failed to copy to clipboard")
		} else {
			summary.Copied = true
		}
	}

	if a.deps.Output != nil {
		if _, err := io.WriteString(a.deps.Output, rewritten.Export); err != nil {
			return summary, a.fail(fmt.Errorf("failed to write output: %w", err))
		}
	}

	notifier.Info(successMessage(summary))
	logger.Info("document published",
		"document", docCtx.Path,
		"references", summary.References,
		"succeeded", summary.Counts.Succeeded,
		"failed", summary.Counts.Failed,
		"skipped", len(summary.Skipped),
		"document_changed", summary.DocumentChanged)

	a.transition(Idle)
	return summary, nil
}

func (a *Action) record(ctx context.Context, document string, batch Batch) {
	var succeeded, failed []Result
	for _, r := range batch.Results {
		switch {
		case r.Outcome.Kind == Succeeded:
			succeeded = append(succeeded, r)
		case r.Outcome.Failed():
			failed = append(failed, r)
		}
	}

	if a.deps.Ledger != nil && len(succeeded) > 0 {
		if err := a.deps.Ledger.RecordUploads(ctx, document, succeeded); err != nil {
			a.deps.Logger.Error("failed to record uploads", "document", document, "error", err)
		}
	}
	if a.deps.Failures != nil && len(failed) > 0 {
		if err := a.deps.Failures.RecordFailures(ctx, document, failed); err != nil {
			a.deps.Logger.Error("failed to record upload failures", "document", document, "error", err)
		}
	}
}

func successMessage(s Summary) string {
	msg := "Published without images"
	if s.References > 0 {
		msg = fmt.Sprintf("%d image(s) uploaded", s.Counts.Succeeded)
		if s.Counts.Failed > 0 {
			msg += fmt.Sprintf(", %d failed", s.Counts.Failed)
		}
	}
	if s.Copied {
		msg += ", copied to clipboard"
	}
	return msg
}

// IsSoft reports errors that leave nothing to undo
func IsSoft(err error) bool {
	return errors.Is(err, ErrNothingToPublish)
}
