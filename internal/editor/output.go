package editor

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/example/artframe/internal/render"
	"github.com/example/artframe/internal/transform"
)

// LoadState reads a saved transform. A missing file is not an error and
// yields nil.
func LoadState(path string) (*transform.State, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := transform.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &st, nil
}

// SaveState writes st to path through a temporary file so a crash never
// leaves a truncated state behind.
func SaveState(path string, st transform.State) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artframe-state-*")
	if err != nil {
		return err
	}
	if err := transform.Encode(tmp, st); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// OutputPath fixes the extension of path to match the export format. An empty
// path becomes "frame.<ext>" inside dir.
func OutputPath(path, dir string, f render.Format) string {
	if path == "" {
		path = "frame" + f.Ext()
		if dir != "" {
			path = filepath.Join(dir, path)
		}
		return path
	}
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, f.Ext()) || (f == render.FormatJPEG && strings.EqualFold(ext, ".jpeg")) {
		return path
	}
	return strings.TrimSuffix(path, ext) + f.Ext()
}

// WriteResult writes an encoded export to path.
func WriteResult(path string, res render.Result) error {
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// DecodeResult turns an encoded export back into pixels for the clipboard
// and notification icon.
func DecodeResult(res render.Result) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return img, nil
}
