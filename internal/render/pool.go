package render

import (
	"fmt"
	"io"

	"github.com/edb-dev/mdmovie/internal/traj"
)

// Pool owns a fixed set of views over one trajectory, all built by the same
// provider with the same options.
type Pool struct {
	views []View
}

// NewPool builds count views eagerly. Each view announces itself on
// opts.Announce as it comes up. On any failure the views already created
// are closed before the error is returned.
func NewPool(count int, provider string, t *traj.Trajectory, opts Options) (*Pool, error) {
	if count < 1 {
		return nil, fmt.Errorf("view count must be positive, got %d", count)
	}
	factory, err := Lookup(provider)
	if err != nil {
		return nil, err
	}
	announce := opts.Announce
	if announce == nil {
		announce = io.Discard
	}
	p := &Pool{views: make([]View, 0, count)}
	for i := 0; i < count; i++ {
		v, err := factory(i, t, opts)
		if err != nil {
			p.CloseAll()
			return nil, fmt.Errorf("create view %d: %w", i, err)
		}
		p.views = append(p.views, v)
		fmt.Fprintf(announce, "view %d ready (%s, %dx%d)\n", i, provider, opts.Width, opts.Height)
	}
	return p, nil
}

// Len returns the number of views.
func (p *Pool) Len() int { return len(p.views) }

// Views returns the views in creation order.
func (p *Pool) Views() []View { return p.views }

// Close releases view i.
func (p *Pool) Close(i int) error {
	if i < 0 || i >= len(p.views) {
		return fmt.Errorf("no view %d", i)
	}
	return p.views[i].Close()
}

// CloseAll releases every view, keeping going past failures and returning
// the first error seen.
func (p *Pool) CloseAll() error {
	var first error
	for _, v := range p.views {
		if err := v.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
