package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/altafino/mdimg-publish/internal/uploader"
	"github.com/altafino/mdimg-publish/internal/webimage"
)

// FileSystem reads images by vault-relative path
type FileSystem interface {
	Exists(path string) bool
	ReadBinary(path string) ([]byte, error)
}

// Downloader fetches web images
type Downloader interface {
	Download(ctx context.Context, rawURL string) (*webimage.Image, error)
}

// Coordinator uploads a set of references concurrently
type Coordinator struct {
	Uploader   uploader.Uploader
	Files      FileSystem
	Downloader Downloader
	Observer   Observer
	Notifier   Notifier
	Logger     *slog.Logger

	// MaxConcurrent bounds in-flight references; 0 means unbounded
	MaxConcurrent int
	// UploadTimeout bounds each backend call; 0 means none
	UploadTimeout time.Duration
	// ContextPath maps a location to the path handed to the backend
	ContextPath func(location string) string
}

// Run uploads every reference and returns once all of them settled. A failed
// reference never cancels its siblings. Results keep input order.
func (c *Coordinator) Run(ctx context.Context, refs []*ImageReference) Batch {
	refs = c.settle(refs)
	if len(refs) == 0 {
		return Batch{}
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := c.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	if c.Observer != nil {
		c.Observer.Start(refs)
	}

	results := make([]Result, len(refs))
	var attempted atomic.Int64
	var observerMu sync.Mutex

	g := new(errgroup.Group)
	if c.MaxConcurrent > 0 {
		g.SetLimit(c.MaxConcurrent)
	}

	for i, ref := range refs {
		g.Go(func() error {
			outcome, reached := c.process(ctx, ref)
			if reached {
				attempted.Add(1)
			}
			results[i] = Result{Ref: ref, Outcome: outcome}

			if outcome.Failed() {
				logger.Warn("image upload failed",
					"location", ref.Location,
					"outcome", outcome.Kind.String(),
					"error", outcome.Err)
				notifier.Warn(fmt.Sprintf("Upload of %s failed: %v", ref.DisplayName, outcome.Err))
			} else {
				logger.Debug("image uploaded", "location", ref.Location, "url", outcome.URL)
			}

			if c.Observer != nil {
				observerMu.Lock()
				c.Observer.Settled(ref, outcome)
				observerMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := Batch{Results: results, Attempted: int(attempted.Load())}
	if c.Observer != nil {
		c.Observer.Finish(batch.Counts())
	}
	return batch
}

// settle switches local references whose location is missing to an existing
// fallback, then merges references that now share a location. The first one
// keeps the upload and takes over the other spellings as aliases.
func (c *Coordinator) settle(refs []*ImageReference) []*ImageReference {
	settled := make([]*ImageReference, 0, len(refs))
	byLocation := make(map[string]*ImageReference, len(refs))
	for _, ref := range refs {
		if !ref.IsRemoteSource && ref.Fallback != "" &&
			!c.Files.Exists(ref.Location) && c.Files.Exists(ref.Fallback) {
			ref.Location = ref.Fallback
			ref.DisplayName = path.Base(ref.Fallback)
			ref.Fallback = ""
		}
		if first, ok := byLocation[ref.Location]; ok {
			for _, token := range ref.Tokens() {
				first.addAlias(token)
			}
			continue
		}
		byLocation[ref.Location] = ref
		settled = append(settled, ref)
	}
	return settled
}

// process runs one reference; reached reports whether the backend was called
func (c *Coordinator) process(ctx context.Context, ref *ImageReference) (outcome Outcome, reached bool) {
	var data []byte
	name := ref.DisplayName

	if ref.IsRemoteSource {
		if c.Downloader == nil {
			return ReadFailed(errors.New("no web image downloader configured")), false
		}
		img, err := c.Downloader.Download(ctx, ref.Location)
		if err != nil {
			return ReadFailed(err), false
		}
		data = img.Data
		if name == "" {
			name = img.Filename
			ref.DisplayName = name
		}
	} else {
		// fallbacks were applied by settle
		if !c.Files.Exists(ref.Location) {
			return NotFound(fmt.Errorf("can not locate %s", ref.Location)), false
		}
		var err error
		data, err = c.Files.ReadBinary(ref.Location)
		if err != nil {
			return ReadFailed(err), false
		}
	}

	uploadCtx := ctx
	if c.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, c.UploadTimeout)
		defer cancel()
	}

	contextPath := ref.Location
	if c.ContextPath != nil && !ref.IsRemoteSource {
		contextPath = c.ContextPath(ref.Location)
	}

	url, err := c.Uploader.Upload(uploadCtx, data, name, contextPath)
	if err != nil {
		return RemoteFailed(err), true
	}
	ref.RemoteURL = url
	return Success(url), true
}
