// Package traj holds an in-memory molecular-dynamics trajectory: a fixed
// atom table plus an ordered list of coordinate frames.
//
// Trajectories are loaded once through gochem readers ([Load] handles XYZ,
// PDB and DCD inputs) and are mutated only by [Trajectory.Smooth], which
// applies a sliding window mean over frames before any rendering starts:
//
//	t, err := traj.Load("protein.pdb", "run.dcd")
//	if err != nil { ... }
//	t.Smooth(10)
//
// Frames are gochem v3 matrices (one row per atom), so coordinates can be
// handed to renderers without copying.
package traj
