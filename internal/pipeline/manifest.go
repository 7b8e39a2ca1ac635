package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest records what a rendering session produced, written next to the
// frames so a later movie-only invocation can verify it matches.
type Manifest struct {
	Timestamp       time.Time `json:"timestamp"`
	Topology        string    `json:"topology"`
	Trajectory      string    `json:"trajectory,omitempty"`
	Renderer        string    `json:"renderer"`
	NumViews        int       `json:"num_views"`
	SmoothingWindow int       `json:"smoothing_window"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	Indices         []int     `json:"indices"`
	FramesWritten   int       `json:"frames_written"`
	Elapsed         float64   `json:"elapsed_seconds"`
}

// WriteManifest saves the session metadata as metadata.json in the image
// folder.
func (g *Generator) WriteManifest() error {
	m := Manifest{
		Timestamp:       time.Now(),
		Topology:        g.cfg.Topology,
		Trajectory:      g.cfg.Trajectory,
		Renderer:        g.cfg.Renderer,
		NumViews:        g.cfg.NumViews,
		SmoothingWindow: g.cfg.SmoothingWindow,
		Width:           g.cfg.Width,
		Height:          g.cfg.Height,
		Indices:         g.indices,
	}
	if g.disp != nil {
		m.FramesWritten = g.disp.Completed()
		m.Elapsed = time.Since(g.startedAt).Seconds()
	}
	path := filepath.Join(g.cfg.ImageFolder, "metadata.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
