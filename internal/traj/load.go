package traj

import (
	"fmt"
	"path/filepath"
	"strings"

	chem "github.com/rmera/gochem"
	"github.com/rmera/gochem/traj/dcd"
	"github.com/rmera/gochem/v3"
)

// Load reads a trajectory from disk. The topology file (XYZ or PDB) defines
// the atom table; trajPath optionally supplies the coordinate frames (DCD or
// multi-frame XYZ). With an empty trajPath the frames embedded in the
// topology file are used.
func Load(topologyPath, trajPath string) (*Trajectory, error) {
	mol, err := readMolecule(topologyPath)
	if err != nil {
		return nil, fmt.Errorf("read topology %s: %w", topologyPath, err)
	}

	atoms := make([]Atom, mol.Len())
	for i := range atoms {
		at := mol.Atom(i)
		atoms[i] = Atom{Symbol: at.Symbol, Name: at.Name, Residue: at.MolName}
	}

	var frames []*v3.Matrix
	switch {
	case trajPath == "":
		frames = mol.Coords
	case strings.EqualFold(filepath.Ext(trajPath), ".dcd"):
		frames, err = readDCD(trajPath, mol.Len())
		if err != nil {
			return nil, fmt.Errorf("read trajectory %s: %w", trajPath, err)
		}
	default:
		tm, err := readMolecule(trajPath)
		if err != nil {
			return nil, fmt.Errorf("read trajectory %s: %w", trajPath, err)
		}
		if tm.Len() != mol.Len() {
			return nil, fmt.Errorf("trajectory %s: %w: %d atoms, topology has %d", trajPath, ErrShape, tm.Len(), mol.Len())
		}
		frames = tm.Coords
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: no coordinate frames", topologyPath)
	}
	return New(atoms, frames)
}

func readMolecule(path string) (*chem.Molecule, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdb":
		return chem.PDBFileRead(path, false)
	case ".xyz":
		return chem.XYZFileRead(path)
	default:
		return nil, fmt.Errorf("unsupported format %q (want .pdb or .xyz)", filepath.Ext(path))
	}
}

func readDCD(path string, natoms int) ([]*v3.Matrix, error) {
	obj, err := dcd.New(path)
	if err != nil {
		return nil, err
	}
	if obj.Len() != natoms {
		return nil, fmt.Errorf("%w: %d atoms, topology has %d", ErrShape, obj.Len(), natoms)
	}
	var frames []*v3.Matrix
	for {
		m := v3.Zeros(natoms)
		if err := obj.Next(m); err != nil {
			if _, last := err.(chem.LastFrameError); last {
				return frames, nil
			}
			return nil, err
		}
		frames = append(frames, m)
	}
}
