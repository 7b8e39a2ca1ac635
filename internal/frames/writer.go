// Package frames owns the on-disk frame contract: the deterministic
// frame_NNNNNN.png naming scheme and the decode/persist steps between a
// render payload and a file.
package frames

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// ErrDecode reports a malformed render payload. The frame is not retried.
var ErrDecode = errors.New("malformed render payload")

// Path returns the canonical file path for a frame index: the index
// zero-padded to six digits under folder. It is a pure function, so
// re-renders overwrite the same file.
func Path(folder string, index int) string {
	return filepath.Join(folder, fmt.Sprintf("frame_%06d.png", index))
}

// Decode turns a transport-encoded payload (base64-wrapped PNG) into a
// raster.
func Decode(payload []byte) (image.Image, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(raw, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	img, err := png.Decode(bytes.NewReader(raw[:n]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Write persists a raster as PNG at path, overwriting any earlier file.
// The parent directory is expected to exist; the dispatcher creates it once
// at start, not per write.
func Write(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("write frame %s: %w", path, err)
	}
	return f.Close()
}
