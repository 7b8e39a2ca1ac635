package traj

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrShape reports coordinate data whose dimensions are inconsistent with
// the atom table. Smoothing never retries on it.
var ErrShape = errors.New("inconsistent coordinate shape")

// Smooth replaces every frame's positions with the mean over the clipped
// window [max(0, i-w/2), min(T, i+w/2+1)). Edge frames average over a
// shorter, asymmetric window. A window of 1 or less is a no-op. The
// trajectory is mutated in place.
func (t *Trajectory) Smooth(window int) error {
	if window <= 1 {
		return nil
	}
	n := len(t.frames)
	if n == 0 {
		return nil
	}
	want := len(t.frames[0].RawMatrix().Data)
	for i, f := range t.frames {
		if len(f.RawMatrix().Data) != want {
			return fmt.Errorf("frame %d: %w", i, ErrShape)
		}
	}

	half := window / 2
	smoothed := make([][]float64, n)
	for i := 0; i < n; i++ {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > n {
			end = n
		}
		sum := make([]float64, want)
		for j := start; j < end; j++ {
			floats.Add(sum, t.frames[j].RawMatrix().Data)
		}
		floats.Scale(1/float64(end-start), sum)
		smoothed[i] = sum
	}
	for i := 0; i < n; i++ {
		copy(t.frames[i].RawMatrix().Data, smoothed[i])
	}
	return nil
}
