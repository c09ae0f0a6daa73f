package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	// Formats accepted as photo sources.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxBytes limits how much encoded data is read for one reference.
	MaxBytes = 64 << 20
	// MaxPixels limits the decoded size of one photo.
	MaxPixels = 80_000_000
)

var (
	// ErrDecode matches every DecodeError.
	ErrDecode = errors.New("image decode failed")
	// ErrEmptyReference is returned for a blank reference.
	ErrEmptyReference = errors.New("empty image reference")
	// ErrTooLarge is returned when a photo exceeds MaxBytes or MaxPixels.
	ErrTooLarge = errors.New("image too large")
	// ErrNoFetcher is returned for remote references when no Fetcher is set.
	ErrNoFetcher = errors.New("remote references need a fetcher")
)

// DecodeError reports a reference that could not be turned into an Image.
type DecodeError struct {
	Ref string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", shortRef(e.Ref), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) true for any DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func shortRef(ref string) string {
	const limit = 48
	if len(ref) <= limit {
		return ref
	}
	return ref[:limit] + "..."
}

// Fetcher retrieves remote references.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// HTTPFetcher fetches http and https references.
type HTTPFetcher struct {
	Client *http.Client
}

// DefaultFetcher is used by Decode when no fetcher is given.
var DefaultFetcher Fetcher = HTTPFetcher{Client: &http.Client{Timeout: 30 * time.Second}}

func (f HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}

// Decode resolves ref and decodes it. ref may be a data URI, a file URL, a
// local path or an http(s) URL. Failures are returned as *DecodeError.
func Decode(ctx context.Context, ref string, fetcher Fetcher) (*Image, error) {
	data, err := readRef(ctx, ref, fetcher)
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	img, err := decodeBytes(data)
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FromImage(ref, img), nil
}

func decodeBytes(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooLarge)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func readRef(ctx context.Context, ref string, fetcher Fetcher) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyReference
	}
	if strings.HasPrefix(ref, "data:") {
		return ParseDataURI(ref)
	}
	u, err := url.Parse(ref)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "file":
			return readFile(u.Path)
		case "http", "https":
			if fetcher == nil {
				fetcher = DefaultFetcher
			}
			if fetcher == nil {
				return nil, ErrNoFetcher
			}
			rc, err := fetcher.Fetch(ctx, ref)
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return readLimited(rc)
		}
	}
	return readFile(ref)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// ParseDataURI returns the payload of a data URI. Both base64 and
// percent-encoded payloads are accepted.
func ParseDataURI(ref string) ([]byte, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("data URI has no payload separator")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\n', '\r', '\t':
				return -1
			}
			return r
		}, payload)
		if unescaped, err := url.PathUnescape(payload); err == nil {
			payload = unescaped
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("data URI: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return []byte(data), nil
}

// DataURI encodes data as a base64 data URI with the given media type.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
