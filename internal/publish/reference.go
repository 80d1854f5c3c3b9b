package publish

import (
	"fmt"
	"time"
)

// ImageReference is one image embedded in a document
type ImageReference struct {
	// SourceToken is the exact matched substring
	SourceToken string
	// Aliases are other spellings in the same document that resolved to Location
	Aliases []string

	DisplayName string
	// Location is the vault-relative path, or the URL for web images. Unique per batch.
	Location string
	// Fallback is a second local candidate tried when Location does not exist
	Fallback string

	RemoteURL      string
	IsRemoteSource bool
}

// Tokens returns the source token followed by every alias
func (r *ImageReference) Tokens() []string {
	return append([]string{r.SourceToken}, r.Aliases...)
}

func (r *ImageReference) addAlias(token string) {
	if token == r.SourceToken {
		return
	}
	for _, a := range r.Aliases {
		if a == token {
			return
		}
	}
	r.Aliases = append(r.Aliases, token)
}

// OutcomeKind classifies how one reference settled
type OutcomeKind int

const (
	Pending OutcomeKind = iota
	Succeeded
	FailedNotFound
	FailedReadError
	FailedRemoteError
)

func (k OutcomeKind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case FailedNotFound:
		return "not_found"
	case FailedReadError:
		return "read_error"
	case FailedRemoteError:
		return "remote_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the settled state of one reference
type Outcome struct {
	Kind OutcomeKind
	URL  string
	Err  error
}

func (o Outcome) Failed() bool {
	return o.Kind == FailedNotFound || o.Kind == FailedReadError || o.Kind == FailedRemoteError
}

func Success(url string) Outcome {
	return Outcome{Kind: Succeeded, URL: url}
}

func NotFound(err error) Outcome {
	return Outcome{Kind: FailedNotFound, Err: fmt.Errorf("%w: %w", ErrResourceNotFound, err)}
}

func ReadFailed(err error) Outcome {
	return Outcome{Kind: FailedReadError, Err: fmt.Errorf("%w: %w", ErrResourceRead, err)}
}

func RemoteFailed(err error) Outcome {
	return Outcome{Kind: FailedRemoteError, Err: fmt.Errorf("%w: %w", ErrRemoteUpload, err)}
}

// Result pairs a reference with its outcome
type Result struct {
	Ref     *ImageReference
	Outcome Outcome
}

// Batch is the joined output of one coordinator run, in input order
type Batch struct {
	Results []Result
	// Attempted counts references that reached the backend
	Attempted int
}

// NothingToDo reports whether no upload was attempted
func (b Batch) NothingToDo() bool {
	return b.Attempted == 0
}

// Counts tallies the batch
func (b Batch) Counts() Counts {
	c := Counts{Total: len(b.Results)}
	for _, r := range b.Results {
		switch {
		case r.Outcome.Kind == Succeeded:
			c.Succeeded++
		case r.Outcome.Failed():
			c.Failed++
		}
	}
	return c
}

// Counts summarises a batch for observers and notifications
type Counts struct {
	Total     int
	Succeeded int
	Failed    int
}

// Options is the immutable per-invocation snapshot of publish settings
type Options struct {
	AttachmentFolder  string
	DeriveAltText     bool
	ReplaceOriginal   bool
	StripFrontMatter  bool
	AllowRemoteUpload bool
	ShowProgress      bool
	CopyToClipboard   bool
	MaxConcurrent     int
	UploadTimeout     time.Duration
}

// DocumentContext locates the active document inside the vault
type DocumentContext struct {
	Path   string
	Active bool
}
