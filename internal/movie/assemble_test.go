package movie

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edb-dev/mdmovie/internal/frames"
)

func touchFrames(t *testing.T, dir string, indices []int) {
	t.Helper()
	for _, idx := range indices {
		if err := os.WriteFile(frames.Path(dir, idx), []byte("png"), 0644); err != nil {
			t.Fatalf("touch frame %d: %v", idx, err)
		}
	}
}

func TestFileListFollowsIndexOrder(t *testing.T) {
	got := FileList("out", []int{10, 0, 4})
	want := []string{
		filepath.Join("out", "frame_000010.png"),
		filepath.Join("out", "frame_000000.png"),
		filepath.Join("out", "frame_000004.png"),
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAssembleMissingFrame(t *testing.T) {
	dir := t.TempDir()
	touchFrames(t, dir, []int{0, 2})
	// index 4 listed but never written
	out := filepath.Join(dir, "out.mp4")
	err := Assemble(context.Background(), dir, []int{0, 2, 4}, out, 30)
	if !errors.Is(err, ErrMissingFrame) {
		t.Fatalf("got %v, want ErrMissingFrame", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("partial movie file produced")
	}
}

func TestAssembleRejectsBadArgs(t *testing.T) {
	if err := Assemble(context.Background(), t.TempDir(), nil, "out.mp4", 30); err == nil {
		t.Error("expected error for empty index list")
	}
	if err := Assemble(context.Background(), t.TempDir(), []int{0}, "out.mp4", 0); err == nil {
		t.Error("expected error for zero fps")
	}
}

func TestConcatListContents(t *testing.T) {
	dir := t.TempDir()
	touchFrames(t, dir, []int{0, 2})
	files := FileList(dir, []int{0, 2})

	listPath, err := writeConcatList(dir, files, 25)
	if err != nil {
		t.Fatalf("write list: %v", err)
	}
	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "frame_000000.png") || !strings.Contains(s, "frame_000002.png") {
		t.Errorf("list missing frame entries:\n%s", s)
	}
	if !strings.Contains(s, "duration 0.040000") {
		t.Errorf("list missing 1/25s durations:\n%s", s)
	}
	// index order is canonical: frame 0 listed before frame 2
	if strings.Index(s, "frame_000000.png") > strings.Index(s, "frame_000002.png") {
		t.Errorf("frames out of order:\n%s", s)
	}
}
