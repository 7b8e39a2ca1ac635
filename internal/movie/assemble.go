// Package movie is the external encoder boundary: it turns an already
// rendered frame sequence into a video file with ffmpeg.
//
// Frame order always comes from the original index list, never from a
// directory listing, so the movie is deterministic regardless of write
// order on disk.
package movie

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edb-dev/mdmovie/internal/frames"
)

// ErrMissingFrame reports a frame file absent from the image folder. The
// assembly fails whole: no partial movie is produced.
var ErrMissingFrame = errors.New("missing frame file")

// Probe reports whether ffmpeg is on PATH.
func Probe() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	return nil
}

// FileList derives the ordered frame paths for indices under folder.
func FileList(folder string, indices []int) []string {
	files := make([]string, len(indices))
	for i, idx := range indices {
		files[i] = frames.Path(folder, idx)
	}
	return files
}

// Assemble encodes the frames for indices into a single H.264 video at
// outFile with the given frame rate. Every listed frame must exist on disk
// before encoding starts.
func Assemble(ctx context.Context, folder string, indices []int, outFile string, fps int) error {
	if len(indices) == 0 {
		return errors.New("assemble: no frame indices")
	}
	if fps <= 0 {
		return fmt.Errorf("assemble: invalid frame rate %d", fps)
	}
	files := FileList(folder, indices)
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingFrame, f)
		}
	}

	listPath, err := writeConcatList(folder, files, fps)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outFile,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("assemble: ffmpeg: %w: %s", err, tail(out, 500))
	}
	return nil
}

// writeConcatList emits an ffmpeg concat-demuxer script holding every frame
// with a uniform per-frame duration.
func writeConcatList(folder string, files []string, fps int) (string, error) {
	var b strings.Builder
	duration := 1.0 / float64(fps)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", fmt.Errorf("assemble: %w", err)
		}
		fmt.Fprintf(&b, "file '%s'\nduration %.6f\n", abs, duration)
	}
	// concat demuxer ignores the last duration unless the final file repeats
	if last, err := filepath.Abs(files[len(files)-1]); err == nil {
		fmt.Fprintf(&b, "file '%s'\n", last)
	}
	listPath := filepath.Join(folder, "frames.ffconcat")
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("assemble: write concat list: %w", err)
	}
	return listPath, nil
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
