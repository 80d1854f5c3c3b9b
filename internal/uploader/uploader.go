// Package uploader holds the backend capability used by the publish pipeline
// and one implementation per remote store.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Uploader pushes one image to a remote store and returns its public URL.
// contextPath is the full local path of the image, for backends that want it.
type Uploader interface {
	Upload(ctx context.Context, content []byte, name, contextPath string) (string, error)
}

// HostedChecker is implemented by backends that can tell whether a web URL
// already points into their own storage.
type HostedChecker interface {
	IsHosted(u *url.URL) bool
}

// Settings is a backend-specific settings variant
type Settings interface {
	Validate() error
}

// Deps carries the process-wide collaborators a backend may need at build time
type Deps struct {
	Logger *slog.Logger
	Now    func() time.Time
	Random func(n int) string
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Random == nil {
		d.Random = RandomString
	}
	return d
}

// Descriptor registers one backend under a stable identifier
type Descriptor struct {
	ID          string
	Description string
	NewSettings func() Settings
	Build       func(ctx context.Context, settings Settings, deps Deps) (Uploader, error)
}

var (
	ErrUnknownBackend  = errors.New("unknown storage backend")
	ErrInvalidSettings = errors.New("invalid backend settings")
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Descriptor)
)

// Register adds a backend. It panics on a duplicate or incomplete descriptor.
func Register(d Descriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if d.ID == "" || d.NewSettings == nil || d.Build == nil {
		panic("uploader: incomplete descriptor for " + d.ID)
	}
	if _, exists := registry[d.ID]; exists {
		panic("uploader: backend registered twice: " + d.ID)
	}
	registry[d.ID] = d
}

// Lookup returns the descriptor registered under id
func Lookup(id string) (Descriptor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[id]
	return d, ok
}

// List returns every registered backend ordered by ID
func List() []Descriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	list := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// DecodeSettings decodes node into the settings variant of backend id and validates it
func DecodeSettings(id string, node *yaml.Node) (Settings, error) {
	d, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, id)
	}

	settings := d.NewSettings()
	if node != nil && node.Kind != 0 {
		if err := node.Decode(settings); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, id, err)
		}
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, id, err)
	}
	return settings, nil
}

// Build decodes the settings for backend id and constructs the uploader
func Build(ctx context.Context, id string, node *yaml.Node, deps Deps) (Uploader, error) {
	settings, err := DecodeSettings(id, node)
	if err != nil {
		return nil, err
	}

	d, _ := Lookup(id)
	up, err := d.Build(ctx, settings, deps.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("failed to build %s backend: %w", id, err)
	}
	return up, nil
}

// RemoteError is returned when a backend rejects an upload
type RemoteError struct {
	Backend string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remoteError(backend string, err error) error {
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Backend: backend, Message: err.Error(), Err: err}
}
