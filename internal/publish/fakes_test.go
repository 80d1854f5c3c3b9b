package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/altafino/mdimg-publish/internal/webimage"
)

type memFS struct {
	files map[string][]byte
	// unreadable paths exist but fail to read
	unreadable map[string]bool
}

func newMemFS(paths ...string) *memFS {
	fs := &memFS{files: map[string][]byte{}, unreadable: map[string]bool{}}
	for _, p := range paths {
		fs.files[p] = []byte("data:" + p)
	}
	return fs
}

func (m *memFS) Exists(p string) bool {
	_, ok := m.files[p]
	return ok
}

func (m *memFS) ReadBinary(p string) ([]byte, error) {
	if m.unreadable[p] {
		return nil, errors.New("permission denied")
	}
	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", p)
	}
	return data, nil
}

type upload struct {
	name        string
	contextPath string
	data        string
}

type fakeUploader struct {
	base  string
	fail  map[string]error
	delay time.Duration

	mu       sync.Mutex
	uploads  []upload
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeUploader) Upload(ctx context.Context, content []byte, name, contextPath string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, upload{name: name, contextPath: contextPath, data: string(content)})
	f.mu.Unlock()

	if err := f.fail[name]; err != nil {
		return "", err
	}
	return f.base + "/" + name, nil
}

func (f *fakeUploader) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, u := range f.uploads {
		names = append(names, u.name)
	}
	return names
}

type fakeDownloader struct {
	images map[string]*webimage.Image
}

func (d *fakeDownloader) Download(_ context.Context, rawURL string) (*webimage.Image, error) {
	img, ok := d.images[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: HTTP 404 from %s", webimage.ErrUnexpectedStatus, rawURL)
	}
	return img, nil
}

type hostChecker string

func (h hostChecker) IsHosted(u *url.URL) bool { return u.Hostname() == string(h) }

type recordingObserver struct {
	started  int
	settled  []string
	finished []Counts
}

func (o *recordingObserver) Start(refs []*ImageReference) { o.started = len(refs) }
func (o *recordingObserver) Settled(ref *ImageReference, outcome Outcome) {
	o.settled = append(o.settled, ref.DisplayName+"="+outcome.Kind.String())
}
func (o *recordingObserver) Finish(c Counts) { o.finished = append(o.finished, c) }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, level+": "+msg)
}
func (n *recordingNotifier) Info(msg string)  { n.add("info", msg) }
func (n *recordingNotifier) Warn(msg string)  { n.add("warn", msg) }
func (n *recordingNotifier) Error(msg string) { n.add("error", msg) }

func (n *recordingNotifier) count(level string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.msgs {
		if strings.HasPrefix(m, level+":") {
			c++
		}
	}
	return c
}

type memDocument struct {
	path   string
	text   string
	writes int
}

func (d *memDocument) ActiveText() (string, error) { return d.text, nil }
func (d *memDocument) SetActiveText(text string) error {
	d.text = text
	d.writes++
	return nil
}
func (d *memDocument) Context() DocumentContext {
	return DocumentContext{Path: d.path, Active: d.path != ""}
}

type memClipboard struct{ text string }

func (c *memClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

type memLedger struct {
	uploads  []Result
	failures []Result
}

func (l *memLedger) RecordUploads(_ context.Context, _ string, results []Result) error {
	l.uploads = append(l.uploads, results...)
	return nil
}

func (l *memLedger) RecordFailures(_ context.Context, _ string, results []Result) error {
	l.failures = append(l.failures, results...)
	return nil
}
