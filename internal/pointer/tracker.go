package pointer

import (
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/touch"
)

// Phase is the stage of a drag gesture.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseBegin
	PhaseMove
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseBegin:
		return "begin"
	case PhaseMove:
		return "move"
	case PhaseEnd:
		return "end"
	default:
		return "none"
	}
}

// Event is a unified drag event in preview coordinates.
type Event struct {
	Phase    Phase
	Position Position
}

// Tracker folds mouse and touch events into a single drag stream. Only the
// left mouse button and the first touch contact drag; a second contact ends
// the drag where the first contact last was.
type Tracker struct {
	// OriginX and OriginY locate the preview inside the window, in window
	// pixels.
	OriginX, OriginY float64
	// PixelRatio is window pixels per logical pixel.
	PixelRatio float64

	mouseDown bool
	touchDown bool
	primary   touch.Sequence
	contacts  map[touch.Sequence]struct{}
	// last is the most recent position of the dragging contact.
	last Position
}

// NewTracker returns a tracker for a preview placed at the window origin.
func NewTracker(pixelRatio float64) *Tracker {
	return &Tracker{PixelRatio: pixelRatio}
}

// Active reports whether a drag is in progress.
func (t *Tracker) Active() bool { return t.mouseDown || t.touchDown }

func (t *Tracker) logical(x, y float32) Position {
	r := t.PixelRatio
	if r <= 0 {
		r = 1
	}
	return Position{
		X: (float64(x) - t.OriginX) / r,
		Y: (float64(y) - t.OriginY) / r,
	}
}

// Mouse translates a mouse event. ok is false when it is not part of a drag.
func (t *Tracker) Mouse(e mouse.Event) (Event, bool) {
	p := t.logical(e.X, e.Y)
	switch {
	case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress:
		if t.touchDown {
			return Event{}, false
		}
		t.mouseDown = true
		return Event{Phase: PhaseBegin, Position: p}, true
	case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirRelease:
		if !t.mouseDown {
			return Event{}, false
		}
		t.mouseDown = false
		return Event{Phase: PhaseEnd, Position: p}, true
	case e.Direction == mouse.DirNone && t.mouseDown:
		return Event{Phase: PhaseMove, Position: p}, true
	}
	return Event{}, false
}

// Touch translates a touch event. ok is false when it is not part of a drag.
func (t *Tracker) Touch(e touch.Event) (Event, bool) {
	if t.contacts == nil {
		t.contacts = make(map[touch.Sequence]struct{})
	}
	p := t.logical(e.X, e.Y)
	switch e.Type {
	case touch.TypeBegin:
		t.contacts[e.Sequence] = struct{}{}
		if len(t.contacts) > 1 {
			if t.touchDown {
				t.touchDown = false
				return Event{Phase: PhaseEnd, Position: t.last}, true
			}
			return Event{}, false
		}
		if t.mouseDown {
			return Event{}, false
		}
		t.touchDown = true
		t.primary = e.Sequence
		t.last = p
		return Event{Phase: PhaseBegin, Position: p}, true
	case touch.TypeMove:
		if t.touchDown && e.Sequence == t.primary {
			t.last = p
			return Event{Phase: PhaseMove, Position: p}, true
		}
	case touch.TypeEnd:
		delete(t.contacts, e.Sequence)
		if t.touchDown && e.Sequence == t.primary {
			t.touchDown = false
			return Event{Phase: PhaseEnd, Position: p}, true
		}
	}
	return Event{}, false
}

// Cancel abandons any drag, for example when the window loses focus.
func (t *Tracker) Cancel() bool {
	active := t.Active()
	t.mouseDown = false
	t.touchDown = false
	t.contacts = nil
	return active
}
