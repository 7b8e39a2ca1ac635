// Package dispatch coordinates parallel frame rendering: it splits a frame
// index list across a pool of views, runs one worker per view, and tracks a
// shared progress counter.
//
// The API is two-phase: [Dispatcher.Start] fires the workers and returns
// immediately; the caller later joins with [Dispatcher.Wait] or watches
// [Dispatcher.Completed] against [Dispatcher.Total]. Buckets are
// independent: a worker failure halts the remaining frames of its own
// bucket only, and the caller inspects Wait's per-worker outcomes before
// assembling a movie.
//
// Cancellation is cooperative, checked at every loop iteration and poll
// tick. [Dispatcher.Kill] additionally abandons workers without joining
// them: best effort, a frame file may be left half written. There is no
// poll timeout, so a stalled render provider stalls its worker until the
// caller cancels.
package dispatch
