//go:build linux || freebsd || openbsd || netbsd || dragonfly

package clipboard

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"sync"
)

// kind selects which clipboard representation a backend reads or writes.
type kind int

const (
	kindText kind = iota
	kindPNG
)

// backend is a native clipboard. With cgo it is golang.design/x/clipboard,
// without it an X11 selection owner.
type backend interface {
	write(k kind, data []byte) error
	// read returns nil data when the clipboard holds nothing of kind k.
	read(k kind) ([]byte, error)
}

var (
	initOnce     sync.Once
	initErr      error
	active       backend
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		active, initErr = newBackend()
	})
	return initErr
}

// WriteImage encodes img as PNG and publishes it to the clipboard.
func WriteImage(img image.Image) error {
	if err := ensureInit(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return active.write(kindPNG, buf.Bytes())
}

// ReadPNG returns the raw PNG bytes held by the clipboard.
func ReadPNG() ([]byte, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data, err := active.read(kindPNG)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}

// WriteText writes text data to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return active.write(kindText, []byte(text))
}

// ReadText returns UTF-8 text data from the clipboard.
func ReadText() (string, error) {
	if err := ensureInit(); err != nil {
		return "", err
	}
	data, err := active.read(kindText)
	if err != nil {
		return "", err
	}
	return selectionText(data)
}

// selectionText drops the trailing NUL some applications append to STRING
// selections.
func selectionText(data []byte) (string, error) {
	data = bytes.TrimSuffix(data, []byte{0})
	if len(data) == 0 {
		return "", ErrNoText
	}
	return string(data), nil
}
