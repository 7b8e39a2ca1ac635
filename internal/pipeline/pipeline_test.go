package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rmera/gochem/v3"

	"github.com/edb-dev/mdmovie/internal/config"
	"github.com/edb-dev/mdmovie/internal/frames"
	"github.com/edb-dev/mdmovie/internal/traj"
)

func testTrajectory(t *testing.T, nframes int) *traj.Trajectory {
	t.Helper()
	atoms := []traj.Atom{
		{Symbol: "C", Name: "CA", Residue: "GLY"},
		{Symbol: "N", Name: "N", Residue: "GLY"},
	}
	fr := make([]*v3.Matrix, nframes)
	for i := range fr {
		m := v3.Zeros(2)
		m.Set(0, 0, float64(i)*0.05)
		m.Set(1, 0, 1.3+float64(i)*0.05)
		fr[i] = m
	}
	tr, err := traj.New(atoms, fr)
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	return tr
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Topology = "synthetic.pdb"
	cfg.ImageFolder = dir
	cfg.NumViews = 3
	cfg.SmoothingWindow = 1
	cfg.Width, cfg.Height = 16, 12
	return cfg
}

func TestEndToEndRender(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Indices = []int{0, 2, 4, 6, 8, 10}

	g, err := NewWith(cfg, testTrajectory(t, 12), nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer g.Cleanup()

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if failures := g.Wait(); len(failures) != 0 {
		t.Fatalf("workers failed: %v", failures)
	}
	if got := g.Dispatcher().Completed(); got != 6 {
		t.Errorf("counter = %d, want 6", got)
	}
	for _, idx := range cfg.Indices {
		if _, err := os.Stat(frames.Path(dir, idx)); err != nil {
			t.Errorf("frame %d missing: %v", idx, err)
		}
	}

	// deterministic assembly order comes from the index list
	if err := g.MakeMovie(context.Background(), filepath.Join(dir, "out.mp4"), 30); err != nil {
		// ffmpeg may be absent in the test environment; only the frame
		// presence check must have passed by then
		t.Logf("assemble: %v", err)
	}
}

func TestSmoothingAppliedDuringSetup(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.SmoothingWindow = 3
	cfg.NumViews = 1

	tr := testTrajectory(t, 5)
	raw0 := tr.Frame(0).At(0, 0)
	if _, err := NewWith(cfg, tr, nil); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if tr.Frame(0).At(0, 0) == raw0 {
		t.Error("positions untouched, smoothing not applied")
	}
}

func TestSmoothingWindowOneLeavesPositions(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.NumViews = 1

	tr := testTrajectory(t, 5)
	want := make([]float64, tr.Frames())
	for i := range want {
		want[i] = tr.Frame(i).At(0, 0)
	}
	if _, err := NewWith(cfg, tr, nil); err != nil {
		t.Fatalf("setup: %v", err)
	}
	for i := range want {
		if got := tr.Frame(i).At(0, 0); got != want[i] {
			t.Errorf("frame %d: %v != %v", i, got, want[i])
		}
	}
}

func TestCleanupWithoutRun(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	g, err := NewWith(cfg, testTrajectory(t, 3), nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	closed := false
	g.SetProgressCloser(func() { closed = true })
	if err := g.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !closed {
		t.Error("progress closer not invoked")
	}
}

func TestRunTwiceFails(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Stop = 2
	g, err := NewWith(cfg, testTrajectory(t, 3), nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer g.Cleanup()
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := g.Run(context.Background()); err == nil {
		t.Fatal("second Run succeeded")
	}
	g.Wait()
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Indices = []int{0, 1}

	g, err := NewWith(cfg, testTrajectory(t, 3), nil)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer g.Cleanup()
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	g.Wait()
	if err := g.WriteManifest(); err != nil {
		t.Fatalf("manifest: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if m.FramesWritten != 2 || len(m.Indices) != 2 {
		t.Errorf("manifest contents wrong: %+v", m)
	}
	if time.Since(m.Timestamp) > time.Minute {
		t.Errorf("stale timestamp: %v", m.Timestamp)
	}
}
