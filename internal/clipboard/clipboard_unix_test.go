//go:build linux || freebsd || openbsd || netbsd || dragonfly

package clipboard

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
)

func resetInit(t *testing.T) {
	t.Helper()
	initOnce, initErr, active = sync.Once{}, nil, nil
	t.Cleanup(func() { initOnce, initErr, active = sync.Once{}, nil, nil })
}

func TestEnsureInitWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	resetInit(t)

	if err := WriteText("data:image/png;base64,"); !errors.Is(err, errNoDisplay) {
		t.Fatalf("expected errNoDisplay, got %v", err)
	}
	if _, err := Reference(); !errors.Is(err, errNoDisplay) {
		t.Fatalf("expected errNoDisplay from Reference, got %v", err)
	}
}

type memBackend struct {
	data map[kind][]byte
}

func (m *memBackend) write(k kind, data []byte) error {
	m.data = map[kind][]byte{k: append([]byte(nil), data...)}
	return nil
}

func (m *memBackend) read(k kind) ([]byte, error) { return m.data[k], nil }

func useBackend(t *testing.T, b backend) {
	t.Helper()
	resetInit(t)
	initOnce.Do(func() {})
	active = b
}

func TestImageThroughBackend(t *testing.T) {
	mem := &memBackend{}
	useBackend(t, mem)

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{200, 10, 10, 255})
	if err := WriteImage(img); err != nil {
		t.Fatal(err)
	}
	data, err := ReadPNG()
	if err != nil {
		t.Fatal(err)
	}
	got, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v", got.Bounds())
	}
	if _, err := ReadText(); !errors.Is(err, ErrNoText) {
		t.Errorf("image write should replace text, got %v", err)
	}
	ref, err := Reference()
	if err != nil || !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Errorf("Reference = %q, %v", ref, err)
	}
}

func TestTextThroughBackend(t *testing.T) {
	mem := &memBackend{}
	useBackend(t, mem)

	if err := WriteText("/tmp/art.png"); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPNG(); !errors.Is(err, ErrNoImage) {
		t.Errorf("ReadPNG error = %v", err)
	}
	ref, err := Reference()
	if err != nil || ref != "/tmp/art.png" {
		t.Errorf("Reference = %q, %v", ref, err)
	}
}

func TestSelectionText(t *testing.T) {
	if s, err := selectionText([]byte("hello\x00")); err != nil || s != "hello" {
		t.Errorf("selectionText = %q, %v", s, err)
	}
	if _, err := selectionText([]byte{0}); !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
	if _, err := selectionText(nil); !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}
