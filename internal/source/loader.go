package source

import (
	"context"
	"sync"
)

// Loader decodes references in the background.
type Loader struct {
	Fetcher Fetcher
}

// Load is an in-flight decode started by Loader.Start.
type Load struct {
	cancel context.CancelFunc
	done   chan struct{}

	once sync.Once
}

// Start decodes ref on its own goroutine and calls done with the result. A
// load that is cancelled before it finishes releases its image and never
// calls done.
func (l *Loader) Start(ctx context.Context, ref string, done func(*Image, error)) *Load {
	ctx, cancel := context.WithCancel(ctx)
	ld := &Load{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(ld.done)
		defer cancel()
		img, err := Decode(ctx, ref, l.Fetcher)
		if ctx.Err() != nil {
			img.Release()
			return
		}
		done(img, err)
	}()
	return ld
}

// Cancel abandons the load. It does not wait for the goroutine.
func (ld *Load) Cancel() {
	if ld == nil {
		return
	}
	ld.once.Do(ld.cancel)
}

// Done is closed once the goroutine has returned.
func (ld *Load) Done() <-chan struct{} { return ld.done }

// Wait blocks until the goroutine has returned or ctx ends.
func (ld *Load) Wait(ctx context.Context) error {
	select {
	case <-ld.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
