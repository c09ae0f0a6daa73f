package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"golang.org/x/mobile/event/touch"

	"github.com/example/artframe/internal/pointer"
	"github.com/example/artframe/internal/render"
	"github.com/example/artframe/internal/schedule"
	"github.com/example/artframe/internal/source"
	"github.com/example/artframe/internal/transform"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func pngRef(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 30, 160, 90, 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return source.DataURI("image/png", buf.Bytes())
}

type recorder struct {
	mu       sync.Mutex
	changes  []transform.State
	statuses []Status
	frames   int
	exports  []error
}

func (r *recorder) attach(s *Session) {
	s.OnTransformChange(func(st transform.State) {
		r.mu.Lock()
		r.changes = append(r.changes, st)
		r.mu.Unlock()
	})
	s.OnStatus(func(st Status) {
		r.mu.Lock()
		r.statuses = append(r.statuses, st)
		r.mu.Unlock()
	})
	s.OnRedraw(func(*image.RGBA) {
		r.mu.Lock()
		r.frames++
		r.mu.Unlock()
	})
	s.OnExport(func(_ render.Result, err error) {
		r.mu.Lock()
		r.exports = append(r.exports, err)
		r.mu.Unlock()
	})
}

func (r *recorder) snapshot() (changes []transform.State, statuses []Status, frames int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transform.State(nil), r.changes...), append([]Status(nil), r.statuses...), r.frames
}

func newSession(t *testing.T) (*Session, *schedule.ManualClock, *recorder) {
	t.Helper()
	clock := schedule.NewManualClock(epoch)
	s := New(Options{
		Clock:      clock,
		Viewport:   &transform.Viewport{Width: 1920, Height: 1080},
		DisplayMax: 600,
		RefreshHz:  50,
	})
	t.Cleanup(s.Dispose)
	r := &recorder{}
	r.attach(s)
	return s, clock, r
}

func load(t *testing.T, s *Session, ref string, prior *transform.State) error {
	t.Helper()
	s.SetSource(ref, prior)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.WaitLoaded(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("load did not finish")
	}
	return err
}

func TestNewSessionIsIdle(t *testing.T) {
	s, _, _ := newSession(t)
	st, err := s.Status()
	if st != StatusIdle || err != nil {
		t.Fatalf("status = %v, %v", st, err)
	}
	if got := s.State(); got != transform.Default(&transform.Viewport{Width: 1920, Height: 1080}) {
		t.Fatalf("initial state %+v", got)
	}
	if s.DisplaySize() != 600 {
		t.Fatalf("DisplaySize = %v", s.DisplaySize())
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, render.ErrNoImage) {
		t.Fatalf("idle export error = %v", err)
	}
	if st, _ := s.Status(); st != StatusIdle {
		t.Fatalf("export changed status to %v", st)
	}
}

func TestLoadTransitions(t *testing.T) {
	s, clock, r := newSession(t)
	if err := load(t, s, pngRef(t, 40, 30), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if st, _ := s.Status(); st != StatusReady {
		t.Fatalf("status = %v, want ready", st)
	}
	_, statuses, _ := r.snapshot()
	if len(statuses) != 2 || statuses[0] != StatusLoading || statuses[1] != StatusReady {
		t.Fatalf("statuses = %v", statuses)
	}
	clock.Advance(20 * time.Millisecond)
	_, _, frames := r.snapshot()
	if frames != 1 {
		t.Fatalf("frames = %d, want 1 coalesced redraw", frames)
	}
	clock.Advance(time.Second)
	changes, _, _ := r.snapshot()
	if len(changes) != 1 || changes[0] != s.State() {
		t.Fatalf("changes = %+v", changes)
	}
}

func TestDecodeFailureKeepsSessionInteractive(t *testing.T) {
	s, clock, r := newSession(t)
	err := load(t, s, "data:image/png;base64,AAAA", nil)
	if !errors.Is(err, source.ErrDecode) {
		t.Fatalf("load error = %v", err)
	}
	st, serr := s.Status()
	if st != StatusError || !errors.Is(serr, source.ErrDecode) {
		t.Fatalf("status = %v, %v", st, serr)
	}
	if _, err := s.RenderPreview(); err != nil {
		t.Fatalf("preview after failure: %v", err)
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, render.ErrNoImage) {
		t.Fatalf("export error = %v", err)
	}
	if err := load(t, s, pngRef(t, 8, 8), nil); err != nil {
		t.Fatalf("reload: %v", err)
	}
	clock.Advance(time.Second)
	_, statuses, _ := r.snapshot()
	if statuses[len(statuses)-1] != StatusReady {
		t.Fatalf("statuses = %v", statuses)
	}
}

func TestPriorTransformIsResumedWithoutNotification(t *testing.T) {
	s, clock, r := newSession(t)
	prior := transform.State{X: 12, Y: -7, Scale: 1.4, Rotation: 33.5}
	if err := load(t, s, pngRef(t, 10, 10), &prior); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.State() != prior {
		t.Fatalf("state = %+v, want %+v", s.State(), prior)
	}
	clock.Advance(time.Second)
	if changes, _, _ := r.snapshot(); len(changes) != 0 {
		t.Fatalf("resume produced notifications %+v", changes)
	}

	bad := transform.State{X: math.NaN(), Scale: 40, Rotation: 270}
	s.SetSource(pngRef(t, 10, 10), &bad)
	if got := s.State(); !got.Valid() {
		t.Fatalf("resumed invalid state %+v", got)
	}
}

func TestTransformNotificationsSettle(t *testing.T) {
	s, clock, r := newSession(t)
	if err := load(t, s, pngRef(t, 10, 10), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	clock.Advance(time.Second)
	base, _, _ := r.snapshot()

	for i := 1; i <= 8; i++ {
		s.SetScale(0.5 + float64(i)*0.1)
		clock.Advance(50 * time.Millisecond)
	}
	s.SetRotation(12.5)
	changes, _, _ := r.snapshot()
	if len(changes) != len(base) {
		t.Fatalf("notified during continuous edits: %d", len(changes)-len(base))
	}
	clock.Advance(200 * time.Millisecond)
	changes, _, _ = r.snapshot()
	if len(changes) != len(base)+1 {
		t.Fatalf("got %d notifications, want 1", len(changes)-len(base))
	}
	last := changes[len(changes)-1]
	if math.Abs(last.Scale-1.3) > 1e-9 || last.Rotation != 12.5 {
		t.Fatalf("settled state %+v", last)
	}
}

func TestRedrawsAreCoalesced(t *testing.T) {
	s, clock, r := newSession(t)
	if err := load(t, s, pngRef(t, 10, 10), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	clock.Advance(time.Second)
	_, _, before := r.snapshot()
	for i := 0; i < 50; i++ {
		s.Nudge(1, 0)
		clock.Advance(2 * time.Millisecond)
	}
	clock.Advance(20 * time.Millisecond)
	_, _, after := r.snapshot()
	if n := after - before; n < 5 || n > 6 {
		t.Fatalf("drew %d frames over 100ms at 50Hz", n)
	}
	if s.State().X != 50 {
		t.Fatalf("X = %v, want 50", s.State().X)
	}
}

func TestPointerIgnoredUntilReady(t *testing.T) {
	s, _, _ := newSession(t)
	before := s.State()
	s.HandlePointer(pointer.Event{Phase: pointer.PhaseBegin, Position: pointer.Position{X: 300, Y: 300}})
	s.HandlePointer(pointer.Event{Phase: pointer.PhaseMove, Position: pointer.Position{X: 400, Y: 300}})
	if s.State() != before {
		t.Fatalf("idle session moved to %+v", s.State())
	}
}

func TestDragMovesPhoto(t *testing.T) {
	s, _, _ := newSession(t)
	if err := load(t, s, pngRef(t, 10, 10), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.HandlePointer(pointer.Event{Phase: pointer.PhaseBegin, Position: pointer.Position{X: 300, Y: 300}})
	s.HandlePointer(pointer.Event{Phase: pointer.PhaseMove, Position: pointer.Position{X: 400, Y: 300}})
	if got := s.State(); math.Abs(got.X-233.3) > 0.05 || math.Abs(got.Y) > 1e-9 {
		t.Fatalf("state after drag %+v", got)
	}
	s.HandlePointer(pointer.Event{Phase: pointer.PhaseEnd, Position: pointer.Position{X: 400, Y: 300}})
	s.PointerMove(pointer.Position{X: 0, Y: 0})
	if got := s.State(); math.Abs(got.X-233.3) > 0.05 {
		t.Fatalf("move after release changed state to %+v", got)
	}
}

func TestSecondTouchEndsDragInPlace(t *testing.T) {
	s, _, _ := newSession(t)
	if err := load(t, s, pngRef(t, 10, 10), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	tr := pointer.NewTracker(1)
	feed := func(e touch.Event) {
		if ev, ok := tr.Touch(e); ok {
			s.HandlePointer(ev)
		}
	}
	feed(touch.Event{X: 100, Y: 100, Sequence: 1, Type: touch.TypeBegin})
	feed(touch.Event{X: 110, Y: 100, Sequence: 1, Type: touch.TypeMove})
	dragged := s.State()
	if math.Abs(dragged.X-23.33) > 0.05 || math.Abs(dragged.Y) > 1e-9 {
		t.Fatalf("state after one-finger move %+v", dragged)
	}
	feed(touch.Event{X: 400, Y: 400, Sequence: 2, Type: touch.TypeBegin})
	if got := s.State(); got != dragged {
		t.Fatalf("second contact moved the photo to %+v, want %+v", got, dragged)
	}
	feed(touch.Event{X: 450, Y: 420, Sequence: 1, Type: touch.TypeMove})
	feed(touch.Event{X: 450, Y: 420, Sequence: 2, Type: touch.TypeMove})
	feed(touch.Event{Sequence: 2, Type: touch.TypeEnd})
	feed(touch.Event{Sequence: 1, Type: touch.TypeEnd})
	if got := s.State(); got != dragged {
		t.Fatalf("multi-touch gesture moved the photo to %+v", got)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	s, _, _ := newSession(t)
	s.SetScale(2.5)
	s.SetPosition(100, 100)
	s.Reset()
	first := s.State()
	s.Reset()
	if s.State() != first {
		t.Fatalf("second reset changed state %+v -> %+v", first, s.State())
	}
}

func TestExportIsNotReentrant(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	exp := render.NewExporter()
	exp.Surface = func(w, h int) (*image.RGBA, error) {
		close(entered)
		<-release
		return render.NewSurface(w, h)
	}
	clock := schedule.NewManualClock(epoch)
	s := New(Options{Clock: clock, Exporter: exp})
	t.Cleanup(s.Dispose)
	r := &recorder{}
	r.attach(s)
	if err := load(t, s, pngRef(t, 16, 16), nil); err != nil {
		t.Fatalf("load: %v", err)
	}

	type outcome struct {
		res render.Result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := s.Export(context.Background())
		first <- outcome{res, err}
	}()
	<-entered
	if _, err := s.Export(context.Background()); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("concurrent export error = %v", err)
	}
	close(release)
	got := <-first
	if got.err != nil {
		t.Fatalf("first export: %v", got.err)
	}
	if got.res.Width != 1400 || len(got.res.Data) == 0 {
		t.Fatalf("unexpected result %dx%d, %d bytes", got.res.Width, got.res.Height, len(got.res.Data))
	}
	if st, _ := s.Status(); st != StatusReady {
		t.Fatalf("export changed status to %v", st)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.exports) != 2 {
		t.Fatalf("OnExport fired %d times, want 2", len(r.exports))
	}
}

func TestExportHonoursCancelledContext(t *testing.T) {
	s, _, _ := newSession(t)
	if err := load(t, s, pngRef(t, 4, 4), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Export(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v", err)
	}
}

type gatedFetcher struct {
	gate chan struct{}
	data []byte
}

func (f *gatedFetcher) Fetch(ctx context.Context, _ string) (io.ReadCloser, error) {
	select {
	case <-f.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func TestStaleLoadIsIgnored(t *testing.T) {
	clock := schedule.NewManualClock(epoch)
	f := &gatedFetcher{gate: make(chan struct{})}
	s := New(Options{Clock: clock, Fetcher: f})
	t.Cleanup(s.Dispose)
	s.SetSource("https://example.com/slow.png", nil)
	if st, _ := s.Status(); st != StatusLoading {
		t.Fatalf("status = %v, want loading", st)
	}
	ref := pngRef(t, 6, 6)
	if err := load(t, s, ref, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	close(f.gate)
	time.Sleep(10 * time.Millisecond)
	if s.Ref() != ref {
		t.Fatalf("ref = %q", s.Ref())
	}
	if st, _ := s.Status(); st != StatusReady {
		t.Fatalf("status = %v, want ready", st)
	}
}

func TestClearSourceReturnsToIdle(t *testing.T) {
	s, _, _ := newSession(t)
	if err := load(t, s, pngRef(t, 4, 4), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.SetSource("", nil)
	if st, _ := s.Status(); st != StatusIdle {
		t.Fatalf("status = %v, want idle", st)
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, render.ErrNoImage) {
		t.Fatalf("export error = %v", err)
	}
}

func TestDisposeCancelsEverything(t *testing.T) {
	s, clock, r := newSession(t)
	if err := load(t, s, pngRef(t, 4, 4), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	clock.Advance(time.Second)
	changes0, _, frames0 := r.snapshot()

	s.SetScale(2)
	s.Dispose()
	s.Dispose()
	clock.Advance(time.Second)
	changes, _, frames := r.snapshot()
	if len(changes) != len(changes0) || frames != frames0 {
		t.Fatalf("callbacks fired after dispose: changes %d->%d frames %d->%d", len(changes0), len(changes), frames0, frames)
	}
	if _, err := s.Export(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Fatalf("export error = %v", err)
	}
	before := s.State()
	s.SetPosition(99, 99)
	s.SetSource(pngRef(t, 4, 4), nil)
	if s.State() != before {
		t.Fatal("setter changed state after dispose")
	}
	if _, err := s.RenderPreview(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("preview error = %v", err)
	}
}

func TestPreviewShowsPhoto(t *testing.T) {
	s, _, _ := newSession(t)
	if err := load(t, s, pngRef(t, 2000, 2000), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.SetScale(1)
	frame, err := s.RenderPreview()
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if got := frame.RGBAAt(300, 300); got != (color.RGBA{30, 160, 90, 255}) {
		t.Fatalf("centre pixel = %v, want photo colour", got)
	}
}
