package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/edb-dev/mdmovie/internal/config"
	"github.com/edb-dev/mdmovie/internal/movie"
	"github.com/edb-dev/mdmovie/internal/pipeline"
	"github.com/edb-dev/mdmovie/internal/progress"
	"github.com/edb-dev/mdmovie/internal/render"
	"github.com/edb-dev/mdmovie/internal/traj"
)

var (
	configFile  string
	topology    string
	trajectory  string
	imageFolder string
	numViews    int
	smoothing   int
	start       int
	stop        int
	stride      int
	width       int
	height      int
	fps         int
	selection   string
	renderer    string
	transparent bool
	noTUI       bool
	movieOut    string
	showTiming  bool
	outFile     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mdmovie",
		Short: "render molecular-dynamics trajectories into movies",
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render trajectory frames in parallel",
		RunE:  runRender,
	}
	renderCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	renderCmd.Flags().StringVar(&topology, "topology", "", "topology file (pdb or xyz)")
	renderCmd.Flags().StringVar(&trajectory, "trajectory", "", "trajectory file (dcd or xyz)")
	renderCmd.Flags().StringVar(&imageFolder, "folder", config.DefaultImageFolder, "image output folder")
	renderCmd.Flags().IntVar(&numViews, "views", config.DefaultNumViews, "number of parallel render views")
	renderCmd.Flags().IntVar(&smoothing, "smooth", config.DefaultSmoothingWindow, "smoothing window (<=1 disables)")
	renderCmd.Flags().IntVar(&start, "start", 0, "first frame index")
	renderCmd.Flags().IntVar(&stop, "stop", 0, "frame index to stop before (0 = end)")
	renderCmd.Flags().IntVar(&stride, "stride", config.DefaultStride, "frame stride")
	renderCmd.Flags().IntVar(&width, "width", config.DefaultWidth, "image width")
	renderCmd.Flags().IntVar(&height, "height", config.DefaultHeight, "image height")
	renderCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "movie frame rate")
	renderCmd.Flags().StringVar(&selection, "selection", "", "atom selection (default: protein + nucleic)")
	renderCmd.Flags().StringVar(&renderer, "renderer", config.DefaultRenderer, "render provider")
	renderCmd.Flags().BoolVar(&transparent, "transparent", false, "transparent background")
	renderCmd.Flags().BoolVar(&noTUI, "no-tui", false, "plain progress output instead of the live display")
	renderCmd.Flags().StringVar(&movieOut, "movie", "", "assemble this movie file after rendering")
	renderCmd.Flags().BoolVar(&showTiming, "timing", false, "plot per-frame render times after completion")

	movieCmd := &cobra.Command{
		Use:   "movie",
		Short: "assemble a movie from already-rendered frames",
		RunE:  runMovie,
	}
	movieCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	movieCmd.Flags().StringVar(&imageFolder, "folder", config.DefaultImageFolder, "image folder")
	movieCmd.Flags().StringVar(&outFile, "out", "movie.mp4", "output video file")
	movieCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "movie frame rate")

	infoCmd := &cobra.Command{
		Use:   "info [topology] [trajectory]",
		Short: "summarize a trajectory",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runInfo,
	}

	providersCmd := &cobra.Command{
		Use:   "renderers",
		Short: "list available render providers",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range render.Providers() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(renderCmd, movieCmd, infoCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig overlays explicitly-set flags on the config file (or the
// defaults when no file is given).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) || configFile == "" {
			apply()
		}
	}
	set("topology", func() { cfg.Topology = topology })
	set("trajectory", func() { cfg.Trajectory = trajectory })
	set("folder", func() { cfg.ImageFolder = imageFolder })
	set("views", func() { cfg.NumViews = numViews })
	set("smooth", func() { cfg.SmoothingWindow = smoothing })
	set("start", func() { cfg.Start = start })
	set("stop", func() { cfg.Stop = stop })
	set("stride", func() { cfg.Stride = stride })
	set("width", func() { cfg.Width = width })
	set("height", func() { cfg.Height = height })
	set("fps", func() { cfg.FPS = fps })
	set("selection", func() { cfg.Selection = selection })
	set("renderer", func() { cfg.Renderer = renderer })
	set("transparent", func() { cfg.Transparent = transparent })
	return cfg, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("loading %s", cfg.Topology)
	if cfg.Trajectory != "" {
		fmt.Printf(" + %s", cfg.Trajectory)
	}
	fmt.Println()

	g, err := pipeline.New(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer g.Cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	total := len(g.Indices())
	fmt.Printf("rendering %d frames on %d views into %s\n", total, cfg.NumViews, cfg.ImageFolder)

	started := time.Now()
	if err := g.Run(ctx); err != nil {
		return err
	}

	if noTUI {
		waitPlain(ctx, g)
	} else {
		if _, err := progress.Run(g.Dispatcher()); err != nil {
			return err
		}
	}

	failures := g.Wait()
	elapsed := time.Since(started).Round(time.Millisecond)
	done := g.Dispatcher().Completed()
	fmt.Printf("rendered %d/%d frames in %v\n", done, total, elapsed)
	if err := g.WriteManifest(); err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "error: %v\n", f)
	}

	if showTiming {
		plotTimings(g.Dispatcher().Timings())
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d views failed; not all frames were rendered", len(failures), cfg.NumViews)
	}
	if movieOut != "" {
		fmt.Printf("assembling %s at %d fps\n", movieOut, cfg.FPS)
		if err := movie.Probe(); err != nil {
			return err
		}
		return g.MakeMovie(ctx, movieOut, cfg.FPS)
	}
	return nil
}

// waitPlain prints a progress line every second until all workers finish.
func waitPlain(ctx context.Context, g *pipeline.Generator) {
	d := g.Dispatcher()
	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			d.Stop()
			<-done
			return
		case <-ticker.C:
			fmt.Printf("rendered %d/%d frames\n", d.Completed(), d.Total())
		}
	}
}

func plotTimings(timings []float64) {
	if len(timings) < 2 {
		return
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(timings,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("seconds per frame (completion order)"),
	))
}

func runMovie(cmd *cobra.Command, args []string) error {
	indices, err := movieIndices(cmd)
	if err != nil {
		return err
	}
	if err := movie.Probe(); err != nil {
		return err
	}
	fmt.Printf("assembling %d frames from %s into %s at %d fps\n", len(indices), imageFolder, outFile, fps)
	return movie.Assemble(context.Background(), imageFolder, indices, outFile, fps)
}

// movieIndices finds the canonical frame order for an assemble-only run:
// the config's explicit list when given, otherwise the index list recorded
// in the folder's manifest. Directory listings are never consulted.
func movieIndices(cmd *cobra.Command) ([]int, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		if !cmd.Flags().Changed("folder") {
			imageFolder = cfg.ImageFolder
		}
		if !cmd.Flags().Changed("fps") {
			fps = cfg.FPS
		}
		if len(cfg.Indices) > 0 {
			return cfg.Indices, nil
		}
	}
	data, err := os.ReadFile(filepath.Join(imageFolder, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("no index list: provide --config with indices or render first (%w)", err)
	}
	var m pipeline.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s manifest: %w", imageFolder, err)
	}
	if len(m.Indices) == 0 {
		return nil, fmt.Errorf("manifest in %s lists no frames", imageFolder)
	}
	return m.Indices, nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	trajPath := ""
	if len(args) > 1 {
		trajPath = args[1]
	}
	t, err := traj.Load(args[0], trajPath)
	if err != nil {
		return err
	}

	residues := map[string]int{}
	elements := map[string]int{}
	for i := 0; i < t.Len(); i++ {
		residues[t.Atom(i).Residue]++
		elements[t.Atom(i).Symbol]++
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "atoms\t%d\n", t.Len())
	fmt.Fprintf(w, "frames\t%d\n", t.Frames())
	fmt.Fprintf(w, "residue kinds\t%d\n", len(residues))
	fmt.Fprintf(w, "element kinds\t%d\n", len(elements))
	return w.Flush()
}
