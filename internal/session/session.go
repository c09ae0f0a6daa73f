// Package session ties one photo, its transform and the two renderers
// together behind a single lock. Hosts drive it with pointer input and
// setters; it answers with paced redraws, settled transform notifications and
// exports.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/artframe/internal/logging"
	"github.com/example/artframe/internal/pointer"
	"github.com/example/artframe/internal/render"
	"github.com/example/artframe/internal/schedule"
	"github.com/example/artframe/internal/source"
	"github.com/example/artframe/internal/theme"
	"github.com/example/artframe/internal/transform"
)

var (
	// ErrExportInProgress is returned by Export while another export runs.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrDisposed is returned by Export after Dispose.
	ErrDisposed = errors.New("session disposed")
)

// Status is the lifecycle state of the photo.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Options configures a Session. Zero values pick defaults.
type Options struct {
	Clock      schedule.Clock
	Viewport   *transform.Viewport
	DisplayMax float64
	PixelRatio float64
	RefreshHz  float64
	Settle     time.Duration
	Theme      *theme.Theme
	Fetcher    source.Fetcher
	Exporter   *render.Exporter
}

// Session is one editing session. All methods are safe for concurrent use.
type Session struct {
	frames   *schedule.Frames
	debounce *schedule.Debouncer
	loader   *source.Loader
	preview  *render.Preview
	exporter *render.Exporter

	exporting atomic.Bool

	mu         sync.Mutex
	disposed   bool
	gen        uint64
	ref        string
	status     Status
	err        error
	img        *source.Image
	load       *source.Load
	loaded     chan struct{}
	state      transform.State
	viewport   *transform.Viewport
	displayMax float64
	pixelRatio float64
	drag       *pointer.Controller

	onChange func(transform.State)
	onRedraw func(*image.RGBA)
	onStatus func(Status)
	onExport func(render.Result, error)
}

// New creates an idle session.
func New(opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	dpr := opts.PixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	exp := opts.Exporter
	if exp == nil {
		exp = render.NewExporter()
	}
	s := &Session{
		frames:     schedule.NewFrames(clock, opts.RefreshHz),
		debounce:   schedule.NewDebouncer(clock, opts.Settle),
		loader:     &source.Loader{Fetcher: opts.Fetcher},
		exporter:   exp,
		viewport:   opts.Viewport,
		displayMax: opts.DisplayMax,
		pixelRatio: dpr,
	}
	size := s.displaySizeLocked()
	s.drag = pointer.NewController(size)
	s.preview = render.NewPreview(opts.Theme, size, dpr)
	s.state = transform.Default(s.viewport)
	return s
}

func (s *Session) displaySizeLocked() float64 {
	var w, h float64
	if s.viewport != nil {
		w, h = s.viewport.Width, s.viewport.Height
	}
	return pointer.DisplaySize(w, h, s.displayMax)
}

// OnTransformChange registers the settled-transform callback.
func (s *Session) OnTransformChange(f func(transform.State)) {
	s.mu.Lock()
	s.onChange = f
	s.mu.Unlock()
}

// OnRedraw registers the callback receiving each rendered preview frame.
func (s *Session) OnRedraw(f func(*image.RGBA)) {
	s.mu.Lock()
	s.onRedraw = f
	s.mu.Unlock()
}

// OnStatus registers the status change callback.
func (s *Session) OnStatus(f func(Status)) {
	s.mu.Lock()
	s.onStatus = f
	s.mu.Unlock()
}

// OnExport registers a callback fired once for every Export call.
func (s *Session) OnExport(f func(render.Result, error)) {
	s.mu.Lock()
	s.onExport = f
	s.mu.Unlock()
}

// Status returns the current status and, in StatusError, the decode error.
func (s *Session) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.err
}

// State returns a copy of the transform.
func (s *Session) State() transform.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ref returns the current source reference.
func (s *Session) Ref() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

// DisplaySize is the side of the preview in logical pixels.
func (s *Session) DisplaySize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displaySizeLocked()
}

// Preview exposes the interactive renderer.
func (s *Session) Preview() *render.Preview { return s.preview }

// SetSource replaces the photo. The transform resets to defaults unless prior
// is given, in which case prior is sanitised and kept. An empty ref clears
// the photo and returns to StatusIdle.
func (s *Session) SetSource(ref string, prior *transform.State) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	s.dropSourceLocked()
	s.ref = ref
	s.err = nil
	s.drag.End()
	notify := prior == nil
	if prior != nil {
		s.state = prior.Clamp()
	} else {
		s.state = transform.Default(s.viewport)
	}
	status := StatusIdle
	if ref != "" {
		status = StatusLoading
		s.loaded = make(chan struct{})
		s.load = s.loader.Start(context.Background(), ref, func(img *source.Image, err error) {
			s.finishLoad(gen, img, err)
		})
	}
	s.status = status
	onStatus := s.onStatus
	s.mu.Unlock()

	logging.Logger().Debug("source set", "status", status, "resumed", !notify)
	if onStatus != nil {
		onStatus(status)
	}
	if notify {
		s.notifyChange()
	}
	s.Redraw()
}

// dropSourceLocked cancels any in-flight load and releases the bitmap.
func (s *Session) dropSourceLocked() {
	if s.load != nil {
		s.load.Cancel()
		s.load = nil
	}
	if s.img != nil {
		s.img.Release()
		s.img = nil
	}
	if s.loaded != nil {
		close(s.loaded)
		s.loaded = nil
	}
}

func (s *Session) finishLoad(gen uint64, img *source.Image, err error) {
	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		img.Release()
		return
	}
	s.load = nil
	if err != nil {
		s.status = StatusError
		s.err = err
		s.img = nil
	} else {
		s.status = StatusReady
		s.img = img
	}
	done := s.loaded
	s.loaded = nil
	status := s.status
	onStatus := s.onStatus
	s.mu.Unlock()

	if err != nil {
		logging.Logger().Warn("decode failed", "err", err)
	} else {
		logging.Logger().Debug("source ready", "width", img.Width(), "height", img.Height())
	}
	if onStatus != nil {
		onStatus(status)
	}
	s.Redraw()
	if done != nil {
		close(done)
	}
}

// WaitLoaded blocks until the current load has finished or ctx ends. It
// returns the decode error, if any.
func (s *Session) WaitLoaded(ctx context.Context) error {
	s.mu.Lock()
	ch := s.loaded
	s.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, err := s.Status()
	return err
}

// SetViewport updates the measured display, which drives the preview size and
// the default scale used by later resets.
func (s *Session) SetViewport(vp *transform.Viewport, pixelRatio float64) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.viewport = vp
	if pixelRatio > 0 {
		s.pixelRatio = pixelRatio
	}
	size := s.displaySizeLocked()
	s.drag.SetDisplaySize(size)
	s.preview.Resize(size, s.pixelRatio)
	s.mu.Unlock()
	s.Redraw()
}

// SetTheme changes the preview palette.
func (s *Session) SetTheme(th *theme.Theme) {
	s.preview.SetTheme(th)
	s.Redraw()
}

// mutate applies f to the transform and schedules the follow-ups.
func (s *Session) mutate(f func(*transform.State)) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	before := s.state
	f(&s.state)
	changed := s.state != before
	s.mu.Unlock()
	if changed {
		s.notifyChange()
		s.Redraw()
	}
}

// SetScale sets the scale, clamped to its range.
func (s *Session) SetScale(v float64) { s.mutate(func(st *transform.State) { st.SetScale(v) }) }

// SetRotation sets the rotation in degrees.
func (s *Session) SetRotation(v float64) { s.mutate(func(st *transform.State) { st.SetRotation(v) }) }

// SetPosition sets the offset in mask units.
func (s *Session) SetPosition(x, y float64) {
	s.mutate(func(st *transform.State) { st.SetPosition(x, y) })
}

// Nudge moves the photo by (dx, dy) mask units.
func (s *Session) Nudge(dx, dy float64) {
	s.mutate(func(st *transform.State) { st.SetPosition(st.X+dx, st.Y+dy) })
}

// Reset restores the default transform for the current viewport.
func (s *Session) Reset() {
	s.mu.Lock()
	vp := s.viewport
	s.mu.Unlock()
	s.mutate(func(st *transform.State) { st.Reset(vp) })
}

// PointerDown starts a drag. Input is ignored unless a photo is ready.
func (s *Session) PointerDown(p pointer.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.status != StatusReady {
		return
	}
	s.drag.Begin(p, s.state.X, s.state.Y)
}

// PointerMove continues a drag.
func (s *Session) PointerMove(p pointer.Position) {
	s.mu.Lock()
	if s.disposed || s.status != StatusReady {
		s.mu.Unlock()
		return
	}
	x, y, ok := s.drag.Move(p)
	s.mu.Unlock()
	if ok {
		s.SetPosition(x, y)
	}
}

// PointerUp ends a drag. The photo stays where it was dropped.
func (s *Session) PointerUp() {
	s.mu.Lock()
	s.drag.End()
	s.mu.Unlock()
}

// HandlePointer dispatches a unified pointer event.
func (s *Session) HandlePointer(ev pointer.Event) {
	switch ev.Phase {
	case pointer.PhaseBegin:
		s.PointerDown(ev.Position)
	case pointer.PhaseMove:
		s.PointerMove(ev.Position)
	case pointer.PhaseEnd:
		s.PointerMove(ev.Position)
		s.PointerUp()
	}
}

func (s *Session) notifyChange() {
	s.debounce.Trigger(s.fireChange)
}

func (s *Session) fireChange() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	st := s.state
	f := s.onChange
	s.mu.Unlock()
	logging.Logger().Debug("transform settled", "state", st.String())
	if f != nil {
		f(st)
	}
}

// FlushChange delivers a pending transform notification immediately.
func (s *Session) FlushChange() bool {
	return s.debounce.Flush()
}

// Redraw schedules a preview frame on the next refresh boundary.
func (s *Session) Redraw() {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return
	}
	s.frames.Request(s.drawFrame)
}

func (s *Session) drawFrame() {
	frame, err := s.RenderPreview()
	if err != nil {
		if !errors.Is(err, ErrDisposed) {
			logging.Logger().Warn("preview render failed", "err", err)
		}
		return
	}
	s.mu.Lock()
	f := s.onRedraw
	s.mu.Unlock()
	if f != nil {
		f(frame)
	}
}

// RenderPreview renders a preview frame synchronously from a snapshot.
func (s *Session) RenderPreview() (*image.RGBA, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	st := s.state
	img := s.img
	s.mu.Unlock()
	return s.preview.Render(st, img)
}

// Export renders and encodes the final image from one consistent snapshot.
// Only one export runs at a time.
func (s *Session) Export(ctx context.Context) (render.Result, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return render.Result{}, ErrDisposed
	}
	st := s.state
	img := s.img
	onExport := s.onExport
	s.mu.Unlock()

	res, err := s.export(ctx, st, img)
	if onExport != nil {
		onExport(res, err)
	}
	return res, err
}

func (s *Session) export(ctx context.Context, st transform.State, img *source.Image) (render.Result, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return render.Result{}, ErrExportInProgress
	}
	defer s.exporting.Store(false)

	if err := ctx.Err(); err != nil {
		return render.Result{}, err
	}
	start := time.Now()
	res, err := s.exporter.Export(st, img)
	if err != nil {
		logging.Logger().Warn("export failed", "err", err)
		return render.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return render.Result{}, fmt.Errorf("export abandoned: %w", err)
	}
	logging.Logger().Info("exported", "format", res.Format, "bytes", len(res.Data), "elapsed", time.Since(start))
	return res, nil
}

// Dispose cancels pending work and releases the photo. Later calls are
// no-ops and Export returns ErrDisposed.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.gen++
	s.dropSourceLocked()
	s.mu.Unlock()

	s.frames.Cancel()
	s.debounce.Cancel()
	logging.Logger().Debug("session disposed")
}
