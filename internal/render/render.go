package render

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/edb-dev/mdmovie/internal/traj"
)

// Rep describes one visual representation: a drawing style applied to the
// atoms matched by a selection.
type Rep struct {
	Style     string `yaml:"style"`
	Selection string `yaml:"selection"`
	Color     string `yaml:"color,omitempty"`
}

// Options configures a view at creation time. With neither Reps nor
// Selection set, the default is ball-and-stick over the "protein" and
// "nucleic" selections together.
type Options struct {
	Width    int
	Height   int
	Reps     []Rep
	Selection string

	// Announce receives the one-line notice emitted when a view comes up,
	// the observable creation side effect. Nil discards it.
	Announce io.Writer
}

// Params configures a single render request.
type Params struct {
	Factor      int  // image scale multiplier, minimum 1
	Transparent bool // transparent instead of white background
}

// Handle identifies one in-flight render. It is opaque to callers and only
// meaningful to the view that issued it.
type Handle interface{}

// View is one independent rendering context bound to a trajectory. Its
// current frame is mutable state, so a view must be driven by at most one
// goroutine at a time.
type View interface {
	ID() int
	SetFrame(index int)
	RequestRender(p Params) (Handle, error)
	Ready(h Handle) bool
	Payload(h Handle) ([]byte, error)
	Close() error
}

// Factory builds one view over a trajectory.
type Factory func(id int, t *traj.Trajectory, opts Options) (View, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a provider available under name. Later registrations
// replace earlier ones.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown renderer %q (available: %v)", name, providerNames())
	}
	return f, nil
}

// Providers lists registered provider names, sorted.
func Providers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	return providerNames()
}

func providerNames() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
