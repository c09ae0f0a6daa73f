// Package clipboard moves exported frames and source images through the
// desktop clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/artframe/internal/source"
)

var (
	// ErrNoImage is returned when the clipboard holds no image data.
	ErrNoImage = errors.New("clipboard does not contain image data")
	// ErrNoText is returned when the clipboard holds no text data.
	ErrNoText = errors.New("clipboard does not contain text data")
)

// Reference returns an image reference for the clipboard contents. Image
// data becomes a PNG data URI; otherwise the clipboard text is used as-is
// so a copied path or URL also works.
func Reference() (string, error) {
	return reference(ReadPNG, ReadText)
}

func reference(readPNG func() ([]byte, error), readText func() (string, error)) (string, error) {
	data, imgErr := readPNG()
	if imgErr == nil {
		return source.DataURI("image/png", data), nil
	}
	text, err := readText()
	if err != nil {
		return "", fmt.Errorf("clipboard: %w", errors.Join(imgErr, err))
	}
	ref := strings.TrimSpace(text)
	if ref == "" {
		return "", fmt.Errorf("clipboard: %w", ErrNoText)
	}
	return ref, nil
}
