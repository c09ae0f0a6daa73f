//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// readTimeout bounds how long a read waits for the selection owner.
const readTimeout = 2 * time.Second

var (
	errTargetUnavailable = errors.New("clipboard target unavailable")
	errReadTimeout       = errors.New("clipboard owner did not answer")
)

// x11Backend owns the CLIPBOARD selection through a hidden window and serves
// whatever was written last. Reads use a separate short-lived connection.
type x11Backend struct {
	conn   *xgb.Conn
	window xproto.Window
	atoms  atomSet

	mu   sync.RWMutex
	text []byte
	png  []byte
}

type atomSet struct {
	clipboard xproto.Atom
	targets   xproto.Atom
	utf8      xproto.Atom
	textPlain xproto.Atom
	png       xproto.Atom
	property  xproto.Atom
}

func newBackend() (backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	const eventMask = xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify
	if err := xproto.CreateWindowChecked(conn, screen.RootDepth, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual, xproto.CwEventMask, []uint32{eventMask}).Check(); err != nil {
		conn.Close()
		return nil, err
	}
	atoms, err := internAtoms(conn)
	if err != nil {
		xproto.DestroyWindow(conn, window)
		conn.Close()
		return nil, err
	}
	b := &x11Backend{conn: conn, window: window, atoms: atoms}
	go b.serve()
	return b, nil
}

func internAtoms(conn *xgb.Conn) (atomSet, error) {
	names := []string{"CLIPBOARD", "TARGETS", "UTF8_STRING", "text/plain;charset=utf-8", "image/png", "ARTFRAME_CLIPBOARD"}
	atoms := make([]xproto.Atom, len(names))
	for i, name := range names {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return atomSet{}, err
		}
		atoms[i] = reply.Atom
	}
	return atomSet{
		clipboard: atoms[0],
		targets:   atoms[1],
		utf8:      atoms[2],
		textPlain: atoms[3],
		png:       atoms[4],
		property:  atoms[5],
	}, nil
}

func (b *x11Backend) write(k kind, data []byte) error {
	b.mu.Lock()
	if k == kindPNG {
		b.png, b.text = append([]byte(nil), data...), nil
	} else {
		b.text, b.png = append([]byte(nil), data...), nil
	}
	b.mu.Unlock()
	return xproto.SetSelectionOwnerChecked(b.conn, b.window, b.atoms.clipboard, xproto.TimeCurrentTime).Check()
}

func (b *x11Backend) read(k kind) ([]byte, error) {
	if k == kindPNG {
		data, err := b.readSelection(b.atoms.png)
		if errors.Is(err, errTargetUnavailable) {
			return nil, nil
		}
		return data, err
	}
	data, err := b.readSelection(b.atoms.utf8)
	if err != nil {
		data, err = b.readSelection(xproto.AtomString)
	}
	if errors.Is(err, errTargetUnavailable) {
		return nil, nil
	}
	return data, err
}

// serve answers selection requests until the connection closes. X errors
// caused by misbehaving requestors are not fatal.
func (b *x11Backend) serve() {
	for {
		ev, xerr := b.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			b.answer(e)
		case xproto.SelectionClearEvent:
			b.mu.Lock()
			b.text, b.png = nil, nil
			b.mu.Unlock()
		}
	}
}

// reply is the property contents offered for one requested target.
type reply struct {
	typ     xproto.Atom
	format  byte
	payload []byte
}

// replyFor builds the answer for target. ok is false when the target is not
// offered.
func (b *x11Backend) replyFor(target xproto.Atom) (reply, bool) {
	b.mu.RLock()
	text, img := b.text, b.png
	b.mu.RUnlock()

	switch target {
	case b.atoms.targets:
		targets := []xproto.Atom{b.atoms.targets}
		if len(text) > 0 {
			targets = append(targets, b.atoms.utf8, xproto.AtomString, b.atoms.textPlain)
		}
		if len(img) > 0 {
			targets = append(targets, b.atoms.png)
		}
		return reply{typ: xproto.AtomAtom, format: 32, payload: atomsToBytes(targets)}, true
	case b.atoms.utf8, xproto.AtomString, b.atoms.textPlain:
		if len(text) == 0 {
			return reply{}, false
		}
		return reply{typ: b.atoms.utf8, format: 8, payload: text}, true
	case b.atoms.png:
		if len(img) == 0 {
			return reply{}, false
		}
		return reply{typ: b.atoms.png, format: 8, payload: img}, true
	}
	return reply{}, false
}

func (r reply) length() uint32 {
	return uint32(len(r.payload) / int(r.format/8))
}

func (b *x11Backend) answer(e xproto.SelectionRequestEvent) {
	property := e.Property
	if property == xproto.AtomNone {
		property = e.Target
	}
	if r, ok := b.replyFor(e.Target); ok {
		xproto.ChangeProperty(b.conn, xproto.PropModeReplace, e.Requestor, property, r.typ, r.format, r.length(), r.payload)
	} else {
		property = xproto.AtomNone
	}
	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	xproto.SendEvent(b.conn, false, e.Requestor, 0, string(notify.Bytes()))
}

// readSelection converts the CLIPBOARD selection to target on a private
// window and returns the resulting property. Large transfers using the INCR
// protocol are not supported.
func (b *x11Backend) readSelection(target xproto.Atom) ([]byte, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}
	if err := xproto.CreateWindowChecked(conn, 0, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check(); err != nil {
		return nil, err
	}
	defer xproto.DestroyWindow(conn, window)

	if err := xproto.DeletePropertyChecked(conn, window, b.atoms.property).Check(); err != nil {
		return nil, err
	}
	if err := xproto.ConvertSelectionChecked(conn, window, b.atoms.clipboard, target, b.atoms.property, xproto.TimeCurrentTime).Check(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	var expired atomic.Bool
	go func() {
		select {
		case <-done:
		case <-time.After(readTimeout):
			expired.Store(true)
			conn.Close()
		}
	}()

	for {
		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			if expired.Load() {
				return nil, errReadTimeout
			}
			return nil, errors.New("clipboard connection closed")
		}
		if xerr != nil {
			return nil, xerr
		}
		e, ok := ev.(xproto.SelectionNotifyEvent)
		if !ok {
			continue
		}
		if e.Property == xproto.AtomNone {
			return nil, errTargetUnavailable
		}
		if e.Property != b.atoms.property {
			continue
		}
		prop, err := xproto.GetProperty(conn, false, window, b.atoms.property, xproto.GetPropertyTypeAny, 0, (1<<31)-1).Reply()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), prop.Value...), nil
	}
}

func atomsToBytes(atoms []xproto.Atom) []byte {
	buf := make([]byte, len(atoms)*4)
	for i, atom := range atoms {
		xgb.Put32(buf[i*4:], uint32(atom))
	}
	return buf
}
