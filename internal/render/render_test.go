package render

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/rmera/gochem/v3"

	"github.com/edb-dev/mdmovie/internal/traj"
)

func ethaneLike(t *testing.T, nframes int) *traj.Trajectory {
	t.Helper()
	atoms := []traj.Atom{
		{Symbol: "C", Name: "CA", Residue: "ALA"},
		{Symbol: "C", Name: "CB", Residue: "ALA"},
		{Symbol: "O", Name: "O", Residue: "HOH"},
	}
	frames := make([]*v3.Matrix, nframes)
	for i := range frames {
		m := v3.Zeros(3)
		m.Set(0, 0, 0)
		m.Set(1, 0, 1.4)
		m.Set(2, 0, 8.0) // solvent atom far away, never bonded
		m.Set(2, 1, float64(i)*0.1)
		frames[i] = m
	}
	tr, err := traj.New(atoms, frames)
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	return tr
}

func TestBuildSceneDefaultSelection(t *testing.T) {
	tr := ethaneLike(t, 1)
	sc, err := buildScene(tr, Options{})
	if err != nil {
		t.Fatalf("build scene: %v", err)
	}
	// Default protein+nucleic keeps the two ALA carbons, not the water.
	if len(sc.Atoms) != 2 {
		t.Fatalf("got %d atoms, want 2", len(sc.Atoms))
	}
	if len(sc.Bonds) != 1 {
		t.Fatalf("got %d bonds, want 1", len(sc.Bonds))
	}
}

func TestBuildSceneExplicitSelection(t *testing.T) {
	tr := ethaneLike(t, 1)
	sc, err := buildScene(tr, Options{Selection: "O"})
	if err != nil {
		t.Fatalf("build scene: %v", err)
	}
	if len(sc.Atoms) != 1 || tr.Atom(sc.Atoms[0].Index).Symbol != "O" {
		t.Fatalf("selection O picked wrong atoms: %+v", sc.Atoms)
	}
}

func TestBuildSceneFallbackToAll(t *testing.T) {
	// XYZ-style input: no residue names, so protein+nucleic matches nothing
	// and the scene falls back to every atom.
	atoms := []traj.Atom{{Symbol: "C"}, {Symbol: "H"}}
	m := v3.Zeros(2)
	m.Set(1, 0, 1.0)
	tr, err := traj.New(atoms, []*v3.Matrix{m})
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	sc, err := buildScene(tr, Options{})
	if err != nil {
		t.Fatalf("build scene: %v", err)
	}
	if len(sc.Atoms) != 2 {
		t.Fatalf("got %d atoms, want 2", len(sc.Atoms))
	}
}

func TestBuildSceneRejectsUnknownStyle(t *testing.T) {
	tr := ethaneLike(t, 1)
	_, err := buildScene(tr, Options{Reps: []Rep{{Style: "cartoon"}}})
	if err == nil || !strings.Contains(err.Error(), "cartoon") {
		t.Fatalf("got %v, want unknown style error", err)
	}
}

func TestPoolCreatesIndependentViews(t *testing.T) {
	tr := ethaneLike(t, 2)
	var announced bytes.Buffer
	p, err := NewPool(3, "raytrace", tr, Options{Width: 8, Height: 6, Announce: &announced})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	defer p.CloseAll()

	if p.Len() != 3 {
		t.Fatalf("got %d views, want 3", p.Len())
	}
	if got := strings.Count(announced.String(), "ready"); got != 3 {
		t.Errorf("got %d announcements, want 3", got)
	}
	for i, v := range p.Views() {
		if v.ID() != i {
			t.Errorf("view %d reports id %d", i, v.ID())
		}
	}
}

func TestPoolRejectsZeroViews(t *testing.T) {
	tr := ethaneLike(t, 1)
	if _, err := NewPool(0, "raytrace", tr, Options{Width: 8, Height: 6}); err == nil {
		t.Fatal("expected error for zero views")
	}
}

func TestPoolUnknownProvider(t *testing.T) {
	tr := ethaneLike(t, 1)
	if _, err := NewPool(1, "vulkan", tr, Options{Width: 8, Height: 6}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func waitReady(t *testing.T, v View, h Handle) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !v.Ready(h) {
		if time.Now().After(deadline) {
			t.Fatal("render did not finish in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRaytraceProducesDecodablePayload(t *testing.T) {
	tr := ethaneLike(t, 2)
	factory, err := Lookup("raytrace")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	v, err := factory(0, tr, Options{Width: 16, Height: 12})
	if err != nil {
		t.Fatalf("create view: %v", err)
	}
	defer v.Close()

	v.SetFrame(1)
	h, err := v.RequestRender(Params{Transparent: true})
	if err != nil {
		t.Fatalf("request render: %v", err)
	}
	waitReady(t, v, h)

	payload, err := v.Payload(h)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("got %dx%d image, want 16x12", b.Dx(), b.Dy())
	}
}

func TestRaytraceRejectsOutOfRangeFrame(t *testing.T) {
	tr := ethaneLike(t, 2)
	factory, _ := Lookup("raytrace")
	v, err := factory(0, tr, Options{Width: 8, Height: 6})
	if err != nil {
		t.Fatalf("create view: %v", err)
	}
	defer v.Close()

	v.SetFrame(5)
	if _, err := v.RequestRender(Params{}); err == nil {
		t.Fatal("expected out-of-range frame error")
	}
}

func TestRaytraceClosedViewRefusesRenders(t *testing.T) {
	tr := ethaneLike(t, 1)
	factory, _ := Lookup("raytrace")
	v, err := factory(0, tr, Options{Width: 8, Height: 6})
	if err != nil {
		t.Fatalf("create view: %v", err)
	}
	v.Close()
	if _, err := v.RequestRender(Params{}); err == nil {
		t.Fatal("expected error on closed view")
	}
}
