package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.SmoothingWindow != 10 {
		t.Errorf("smoothing window = %d, want 10", cfg.SmoothingWindow)
	}
	if cfg.NumViews != 10 {
		t.Errorf("num views = %d, want 10", cfg.NumViews)
	}
	if cfg.FPS != 30 {
		t.Errorf("fps = %d, want 30", cfg.FPS)
	}
	if cfg.Renderer != "raytrace" {
		t.Errorf("renderer = %q, want raytrace", cfg.Renderer)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Topology = "mol.pdb"
		return c
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name  string
		mutate func(*Config)
	}{
		{"no topology", func(c *Config) { c.Topology = "" }},
		{"no folder", func(c *Config) { c.ImageFolder = "" }},
		{"zero views", func(c *Config) { c.NumViews = 0 }},
		{"zero stride", func(c *Config) { c.Stride = 0 }},
		{"negative start", func(c *Config) { c.Start = -1 }},
		{"negative index", func(c *Config) { c.Indices = []int{0, -2} }},
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"no renderer", func(c *Config) { c.Renderer = "" }},
	}
	for _, tt := range tests {
		c := valid()
		tt.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestResolveIndicesRange(t *testing.T) {
	c := Default()
	c.Start, c.Stop, c.Stride = 0, 0, 3

	got, err := c.ResolveIndices(10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []int{0, 3, 6, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveIndicesExplicitList(t *testing.T) {
	c := Default()
	c.Indices = []int{4, 0, 8}

	got, err := c.ResolveIndices(10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []int{4, 0, 8}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v (order preserved)", got, want)
	}

	c.Indices = []int{4, 12}
	if _, err := c.ResolveIndices(10); err == nil {
		t.Error("expected error for index beyond trajectory")
	}
}

func TestResolveIndicesEmptyRange(t *testing.T) {
	c := Default()
	c.Start, c.Stop = 8, 4
	if _, err := c.ResolveIndices(10); err == nil {
		t.Error("expected error for empty range")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
topology: prot.pdb
trajectory: run.dcd
image_folder: shots
num_views: 4
smoothing_window: 1
representations:
  - style: licorice
    selection: protein
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NumViews != 4 || cfg.SmoothingWindow != 1 {
		t.Errorf("explicit values not applied: %+v", cfg)
	}
	if cfg.FPS != DefaultFPS || cfg.Stride != DefaultStride {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
	if len(cfg.Representations) != 1 || cfg.Representations[0].Style != "licorice" {
		t.Errorf("representations not parsed: %+v", cfg.Representations)
	}
}
