package clipboard

import (
	"errors"
	"strings"
	"testing"
)

func TestReferencePrefersImage(t *testing.T) {
	ref, err := reference(
		func() ([]byte, error) { return []byte{0x89, 'P', 'N', 'G'}, nil },
		func() (string, error) { t.Fatal("text should not be read"); return "", nil },
	)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Errorf("unexpected reference %q", ref)
	}
}

func TestReferenceFallsBackToText(t *testing.T) {
	ref, err := reference(
		func() ([]byte, error) { return nil, ErrNoImage },
		func() (string, error) { return "  /tmp/art.png\n", nil },
	)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "/tmp/art.png" {
		t.Errorf("reference = %q", ref)
	}
}

func TestReferenceEmpty(t *testing.T) {
	_, err := reference(
		func() ([]byte, error) { return nil, ErrNoImage },
		func() (string, error) { return "", ErrNoText },
	)
	if !errors.Is(err, ErrNoImage) || !errors.Is(err, ErrNoText) {
		t.Fatalf("expected both causes, got %v", err)
	}

	_, err = reference(
		func() ([]byte, error) { return nil, ErrNoImage },
		func() (string, error) { return "   ", nil },
	)
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}
