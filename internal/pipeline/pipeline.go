// Package pipeline wires the whole run together: load and smooth the
// trajectory, build the view pool, dispatch parallel rendering, assemble
// the movie, and tear everything down.
//
// The public surface mirrors a two-phase capture session: construction does
// all the setup, Run fires the workers and returns, the caller waits (or
// watches progress), MakeMovie encodes, Cleanup releases everything.
// Cleanup is safe even when Run was never called.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/edb-dev/mdmovie/internal/config"
	"github.com/edb-dev/mdmovie/internal/dispatch"
	"github.com/edb-dev/mdmovie/internal/movie"
	"github.com/edb-dev/mdmovie/internal/render"
	"github.com/edb-dev/mdmovie/internal/traj"
)

// Generator owns one rendering session over one trajectory.
type Generator struct {
	cfg     *config.Config
	traj    *traj.Trajectory
	indices []int
	pool    *render.Pool
	disp    *dispatch.Dispatcher

	closeProgress func()
	started       bool
	startedAt     time.Time
}

// New validates the configuration, loads and smooths the trajectory,
// creates the image folder and builds the view pool. Announce receives the
// view-creation notices; nil discards them.
func New(cfg *config.Config, announce io.Writer) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t, err := traj.Load(cfg.Topology, cfg.Trajectory)
	if err != nil {
		return nil, err
	}
	return NewWith(cfg, t, announce)
}

// NewWith is New for a caller that already holds a loaded trajectory.
func NewWith(cfg *config.Config, t *traj.Trajectory, announce io.Writer) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	indices, err := cfg.ResolveIndices(t.Frames())
	if err != nil {
		return nil, err
	}
	if err := t.Smooth(cfg.SmoothingWindow); err != nil {
		return nil, fmt.Errorf("smooth trajectory: %w", err)
	}
	if err := os.MkdirAll(cfg.ImageFolder, 0755); err != nil {
		return nil, fmt.Errorf("create image folder: %w", err)
	}
	pool, err := render.NewPool(cfg.NumViews, cfg.Renderer, t, render.Options{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Reps:      cfg.Representations,
		Selection: cfg.Selection,
		Announce:  announce,
	})
	if err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, traj: t, indices: indices, pool: pool}, nil
}

// Trajectory returns the (possibly smoothed) trajectory.
func (g *Generator) Trajectory() *traj.Trajectory { return g.traj }

// Indices returns the resolved frame index list.
func (g *Generator) Indices() []int { return g.indices }

// Run starts parallel rendering and returns without waiting. Completion is
// observed through Wait, or by watching the dispatcher's counter reach its
// total.
func (g *Generator) Run(ctx context.Context) error {
	if g.started {
		return errors.New("pipeline: already running")
	}
	d, err := dispatch.New(g.pool.Views(), g.indices, g.cfg.ImageFolder,
		dispatch.WithRenderParams(render.Params{Transparent: g.cfg.Transparent}),
	)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	g.disp = d
	g.started = true
	g.startedAt = time.Now()
	return nil
}

// Dispatcher exposes the running dispatch for progress display. Nil before
// Run.
func (g *Generator) Dispatcher() *dispatch.Dispatcher { return g.disp }

// Wait joins all workers and returns the failures, one entry per failed
// worker. An empty slice means every frame was written.
func (g *Generator) Wait() []error {
	if g.disp == nil {
		return nil
	}
	var failures []error
	for i, err := range g.disp.Wait() {
		if err != nil {
			failures = append(failures, fmt.Errorf("view %d: %w", i, err))
		}
	}
	return failures
}

// MakeMovie assembles the frames for this session's index list into
// outFile. It assumes the writes for all indices completed; a missing
// frame fails the whole assembly.
func (g *Generator) MakeMovie(ctx context.Context, outFile string, fps int) error {
	return movie.Assemble(ctx, g.cfg.ImageFolder, g.indices, outFile, fps)
}

// SetProgressCloser registers the function Cleanup uses to shut the
// progress display.
func (g *Generator) SetProgressCloser(close func()) { g.closeProgress = close }

// Cleanup tears the session down: progress display first, then every view,
// then any still-registered workers. Stopping an already-finished worker
// is swallowed by design. Safe to call if Run was never invoked.
func (g *Generator) Cleanup() error {
	if g.closeProgress != nil {
		g.closeProgress()
		g.closeProgress = nil
	}
	var err error
	if g.pool != nil {
		err = g.pool.CloseAll()
	}
	if g.disp != nil {
		g.disp.Kill()
	}
	return err
}
