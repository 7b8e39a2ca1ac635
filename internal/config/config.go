// Package config holds the renderer run configuration: input files, frame
// selection, smoothing, view count and output settings, loadable from a
// YAML file with CLI flags layered on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edb-dev/mdmovie/internal/render"
)

const (
	DefaultSmoothingWindow = 10
	DefaultNumViews        = 10
	DefaultWidth           = 1280
	DefaultHeight          = 720
	DefaultFPS             = 30
	DefaultStride          = 1
	DefaultRenderer        = "raytrace"
	DefaultImageFolder     = "frames"
)

type Config struct {
	Topology    string `yaml:"topology"`
	Trajectory  string `yaml:"trajectory,omitempty"`
	ImageFolder string `yaml:"image_folder"`

	// Frame selection: an explicit index list wins over the stride range.
	// Stop of 0 means "through the last frame".
	Indices []int `yaml:"indices,omitempty"`
	Start   int   `yaml:"start"`
	Stop    int   `yaml:"stop"`
	Stride  int   `yaml:"stride"`

	SmoothingWindow int `yaml:"smoothing_window"`
	NumViews        int `yaml:"num_views"`

	Renderer        string       `yaml:"renderer"`
	Width           int          `yaml:"width"`
	Height          int          `yaml:"height"`
	Transparent     bool         `yaml:"transparent"`
	Selection       string       `yaml:"selection,omitempty"`
	Representations []render.Rep `yaml:"representations,omitempty"`

	FPS int `yaml:"fps"`
}

func Default() *Config {
	return &Config{
		ImageFolder:     DefaultImageFolder,
		Stride:          DefaultStride,
		SmoothingWindow: DefaultSmoothingWindow,
		NumViews:        DefaultNumViews,
		Renderer:        DefaultRenderer,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		FPS:             DefaultFPS,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything that must hold before any view is created.
// Failures here are fatal at setup.
func (c *Config) Validate() error {
	if c.Topology == "" {
		return fmt.Errorf("config: topology file is required")
	}
	if c.ImageFolder == "" {
		return fmt.Errorf("config: image folder is required")
	}
	if c.NumViews < 1 {
		return fmt.Errorf("config: num_views must be at least 1, got %d", c.NumViews)
	}
	if c.Stride < 1 && len(c.Indices) == 0 {
		return fmt.Errorf("config: stride must be at least 1, got %d", c.Stride)
	}
	if c.Start < 0 || c.Stop < 0 {
		return fmt.Errorf("config: frame range must be non-negative")
	}
	for _, idx := range c.Indices {
		if idx < 0 {
			return fmt.Errorf("config: negative frame index %d", idx)
		}
	}
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("config: image size %dx%d is invalid", c.Width, c.Height)
	}
	if c.FPS < 1 {
		return fmt.Errorf("config: fps must be at least 1, got %d", c.FPS)
	}
	if c.Renderer == "" {
		return fmt.Errorf("config: renderer name is required")
	}
	return nil
}

// ResolveIndices returns the frame index list for a trajectory of
// totalFrames frames: the explicit list when given, otherwise the
// start/stop/stride range clipped to the trajectory length.
func (c *Config) ResolveIndices(totalFrames int) ([]int, error) {
	if len(c.Indices) > 0 {
		for _, idx := range c.Indices {
			if idx >= totalFrames {
				return nil, fmt.Errorf("config: frame index %d beyond trajectory (%d frames)", idx, totalFrames)
			}
		}
		out := make([]int, len(c.Indices))
		copy(out, c.Indices)
		return out, nil
	}
	stop := c.Stop
	if stop == 0 || stop > totalFrames {
		stop = totalFrames
	}
	if c.Start >= stop {
		return nil, fmt.Errorf("config: empty frame range [%d,%d)", c.Start, stop)
	}
	var out []int
	for i := c.Start; i < stop; i += c.Stride {
		out = append(out, i)
	}
	return out, nil
}
