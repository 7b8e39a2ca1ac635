package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edb-dev/mdmovie/internal/frames"
	"github.com/edb-dev/mdmovie/internal/render"
)

// DefaultPollInterval is the sleep between payload polls, matching the
// reference capture loop.
const DefaultPollInterval = 100 * time.Millisecond

// Worker drives one view through one bucket of frame indices.
type Worker struct {
	id     int
	view   render.View
	bucket []int

	completed atomic.Int64
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

// Completed returns how many of this worker's frames have been written.
func (w *Worker) Completed() int { return int(w.completed.Load()) }

// Total returns the bucket size.
func (w *Worker) Total() int { return len(w.bucket) }

// Finished reports whether the worker has returned.
func (w *Worker) Finished() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Stop cancels the worker at its next loop iteration or poll tick.
// Stopping a worker that already finished, or was never started, is a
// no-op: it neither errors nor moves any counter.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Dispatcher partitions a frame index list across a set of views and runs
// one worker per view. Start is asynchronous; the caller joins via Wait or
// watches Completed reach Total.
type Dispatcher struct {
	views    []render.View
	indices  []int
	folder   string
	params   render.Params
	interval time.Duration

	counter atomic.Int64
	workers []*Worker
	started bool

	timingMu sync.Mutex
	timings  []float64 // seconds per rendered frame, completion order
}

// Option tweaks dispatcher construction.
type Option func(*Dispatcher)

// WithPollInterval overrides the payload poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.interval = d }
}

// WithRenderParams sets the per-request render parameters.
func WithRenderParams(p render.Params) Option {
	return func(dp *Dispatcher) { dp.params = p }
}

// New builds a dispatcher over the given views. The index list is split
// into exactly len(views) buckets; every index lands in one bucket.
func New(views []render.View, indices []int, folder string, opts ...Option) (*Dispatcher, error) {
	if len(views) == 0 {
		return nil, errors.New("dispatch: no views")
	}
	for _, idx := range indices {
		if idx < 0 {
			return nil, fmt.Errorf("dispatch: negative frame index %d", idx)
		}
	}
	d := &Dispatcher{
		views:    views,
		indices:  indices,
		folder:   folder,
		interval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(d)
	}
	buckets := Partition(indices, len(views))
	d.workers = make([]*Worker, len(views))
	for i := range d.workers {
		d.workers[i] = &Worker{
			id:     i,
			view:   views[i],
			bucket: buckets[i],
			done:   make(chan struct{}),
		}
	}
	return d, nil
}

// Total returns the number of frames requested.
func (d *Dispatcher) Total() int { return len(d.indices) }

// Completed returns the number of frames written so far, across all
// workers. Monotonic, at most one increment per frame.
func (d *Dispatcher) Completed() int { return int(d.counter.Load()) }

// Workers returns the per-view workers for progress display and targeted
// cancellation.
func (d *Dispatcher) Workers() []*Worker { return d.workers }

// Start creates the image folder and fires one goroutine per (view,
// bucket) pair, then returns without waiting. It may be called once.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.started {
		return errors.New("dispatch: already started")
	}
	d.started = true
	if err := os.MkdirAll(d.folder, 0755); err != nil {
		return fmt.Errorf("dispatch: create image folder: %w", err)
	}
	for _, w := range d.workers {
		wctx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		go d.runWorker(wctx, w)
	}
	return nil
}

// runWorker renders the worker's bucket in order: point the view, request,
// poll until the payload lands, decode, persist, count. Any failure stops
// the remaining frames of this bucket only.
func (d *Dispatcher) runWorker(ctx context.Context, w *Worker) {
	defer close(w.done)
	defer w.cancel()
	for _, idx := range w.bucket {
		if err := ctx.Err(); err != nil {
			w.err = err
			return
		}
		start := time.Now()
		if err := d.renderOne(ctx, w.view, idx); err != nil {
			w.err = fmt.Errorf("worker %d frame %d: %w", w.id, idx, err)
			return
		}
		d.recordTiming(time.Since(start))
		w.completed.Add(1)
		d.counter.Add(1)
	}
}

func (d *Dispatcher) renderOne(ctx context.Context, v render.View, idx int) error {
	v.SetFrame(idx)
	h, err := v.RequestRender(d.params)
	if err != nil {
		return err
	}
	// No poll deadline: a render that never completes holds this worker
	// until the context is cancelled.
	for !v.Ready(h) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.interval):
		}
	}
	payload, err := v.Payload(h)
	if err != nil {
		return err
	}
	img, err := frames.Decode(payload)
	if err != nil {
		return err
	}
	return frames.Write(img, frames.Path(d.folder, idx))
}

func (d *Dispatcher) recordTiming(elapsed time.Duration) {
	d.timingMu.Lock()
	d.timings = append(d.timings, elapsed.Seconds())
	d.timingMu.Unlock()
}

// Timings returns per-frame render durations in seconds, in completion
// order across all workers.
func (d *Dispatcher) Timings() []float64 {
	d.timingMu.Lock()
	defer d.timingMu.Unlock()
	out := make([]float64, len(d.timings))
	copy(out, d.timings)
	return out
}

// Wait joins every worker and returns the per-worker outcomes, indexed by
// view. Cancellation shows up as context.Canceled; sibling workers are
// never failed by a peer.
func (d *Dispatcher) Wait() []error {
	errs := make([]error, len(d.workers))
	for i, w := range d.workers {
		<-w.done
		errs[i] = w.err
	}
	return errs
}

// Stop requests cooperative cancellation of every worker. Workers exit at
// their next loop iteration or poll tick; already-finished workers are
// unaffected.
func (d *Dispatcher) Stop() {
	for _, w := range d.workers {
		w.Stop()
	}
}

// Kill is the forced teardown path: it cancels every worker and abandons
// them without joining. Best effort, not guaranteed clean — a worker caught
// mid-write can leave a truncated frame file behind, which a re-run
// overwrites.
func (d *Dispatcher) Kill() {
	d.Stop()
}
