package traj

import (
	"fmt"

	"github.com/rmera/gochem/v3"
)

// Atom is the per-atom metadata a renderer needs: the element symbol, the
// atom name and the residue it belongs to.
type Atom struct {
	Symbol  string
	Name    string
	Residue string
}

// Trajectory is a fixed atom table plus an ordered list of coordinate
// frames. Frames are natoms x 3 matrices. The caller owns the trajectory;
// the only mutation this package performs is in-place smoothing.
type Trajectory struct {
	atoms  []Atom
	frames []*v3.Matrix
}

// New builds a trajectory from an atom table and pre-loaded frames. Every
// frame must have exactly one row per atom.
func New(atoms []Atom, frames []*v3.Matrix) (*Trajectory, error) {
	for i, f := range frames {
		if f == nil {
			return nil, fmt.Errorf("frame %d: nil coordinates", i)
		}
		if f.NVecs() != len(atoms) {
			return nil, fmt.Errorf("frame %d: %w: %d rows for %d atoms", i, ErrShape, f.NVecs(), len(atoms))
		}
	}
	return &Trajectory{atoms: atoms, frames: frames}, nil
}

// Len returns the number of atoms.
func (t *Trajectory) Len() int { return len(t.atoms) }

// Frames returns the number of coordinate frames.
func (t *Trajectory) Frames() int { return len(t.frames) }

// Atom returns the metadata for atom i.
func (t *Trajectory) Atom(i int) Atom { return t.atoms[i] }

// Frame returns the coordinates of frame i. The matrix is shared, not
// copied; readers must not write to it.
func (t *Trajectory) Frame(i int) *v3.Matrix { return t.frames[i] }
