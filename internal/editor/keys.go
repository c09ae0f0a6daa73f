package editor

import (
	"golang.org/x/mobile/event/key"

	"github.com/example/artframe/internal/session"
)

const (
	scaleStep  = 0.05
	rotateStep = 1.0
	nudgeStep  = 10.0
	fineStep   = 1.0
)

type action int

const (
	actionNone action = iota
	actionScale
	actionRotate
	actionNudge
	actionReset
	actionExport
	actionQuit
)

// command is a key press resolved to an edit. Amounts are deltas.
type command struct {
	action action
	amount float64
	dx, dy float64
}

// KeyShortcut documents one binding for the status bar and help text.
type KeyShortcut struct {
	Keys  string
	Label string
}

// Shortcuts lists the editor bindings in display order.
func Shortcuts() []KeyShortcut {
	return []KeyShortcut{
		{"+/-", "scale"},
		{"[/]", "rotate"},
		{"arrows", "move"},
		{"0", "reset"},
		{"E", "export"},
		{"Q", "quit"},
	}
}

func commandFor(e key.Event) command {
	if e.Direction != key.DirPress && e.Direction != key.DirNone {
		return command{}
	}
	step := nudgeStep
	if e.Modifiers&key.ModShift != 0 {
		step = fineStep
	}
	switch e.Code {
	case key.CodeLeftArrow:
		return command{action: actionNudge, dx: -step}
	case key.CodeRightArrow:
		return command{action: actionNudge, dx: step}
	case key.CodeUpArrow:
		return command{action: actionNudge, dy: -step}
	case key.CodeDownArrow:
		return command{action: actionNudge, dy: step}
	case key.CodeReturnEnter:
		return command{action: actionExport}
	case key.CodeEscape:
		return command{action: actionQuit}
	}
	switch e.Rune {
	case '+', '=':
		return command{action: actionScale, amount: scaleStep}
	case '-', '_':
		return command{action: actionScale, amount: -scaleStep}
	case '[':
		return command{action: actionRotate, amount: -rotateStep}
	case ']':
		return command{action: actionRotate, amount: rotateStep}
	case '0':
		return command{action: actionReset}
	case 'e', 'E':
		return command{action: actionExport}
	case 'q', 'Q':
		return command{action: actionQuit}
	}
	return command{}
}

// apply performs transform edits on the session. Export and quit are left to
// the caller.
func (c command) apply(s *session.Session) bool {
	st := s.State()
	switch c.action {
	case actionScale:
		s.SetScale(st.Scale + c.amount)
	case actionRotate:
		s.SetRotation(st.Rotation + c.amount)
	case actionNudge:
		s.Nudge(c.dx, c.dy)
	case actionReset:
		s.Reset()
	default:
		return false
	}
	return true
}
