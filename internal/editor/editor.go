// Package editor hosts a session in a desktop window.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"

	"github.com/example/artframe/internal/clipboard"
	"github.com/example/artframe/internal/logging"
	"github.com/example/artframe/internal/notify"
	"github.com/example/artframe/internal/pointer"
	"github.com/example/artframe/internal/render"
	"github.com/example/artframe/internal/session"
	"github.com/example/artframe/internal/theme"
	"github.com/example/artframe/internal/transform"
)

const (
	margin       = 24 // logical pixels around the preview
	statusHeight = 28 // logical pixels for the status line
	statusFont   = 13
	messageTTL   = 3 * time.Second
)

// Options configures an Editor.
type Options struct {
	Session    *session.Session
	Theme      *theme.Theme
	PixelRatio float64

	// Output is the export path. Its extension is corrected to the format.
	Output  string
	SaveDir string
	// StatePath receives the settled transform as JSON. Empty disables it.
	StatePath string
	// Copy also places each export on the clipboard.
	Copy     bool
	Notifier *notify.Notifier
	// OnClose runs once when the window goes away.
	OnClose func()
}

type message struct {
	text  string
	err   bool
	until time.Time
}

// Editor is the window around one session.
type Editor struct {
	opts Options
	dpr  float64

	mu    sync.Mutex
	frame *image.RGBA
	msg   message

	closeOnce sync.Once
}

// New creates an editor for opts.Session.
func New(opts Options) *Editor {
	if opts.Theme == nil {
		opts.Theme = theme.Default()
	}
	dpr := opts.PixelRatio
	if !(dpr > 0) {
		dpr = 1
	}
	return &Editor{opts: opts, dpr: dpr}
}

// Run executes the UI loop using shiny's driver.
func (e *Editor) Run() { driver.Main(e.Main) }

// windowSize is the initial window for a preview of backing pixels.
func windowSize(backing int, dpr float64) image.Point {
	pad := int(math.Round(margin * dpr))
	bar := int(math.Round(statusHeight * dpr))
	return image.Pt(backing+2*pad, backing+2*pad+bar)
}

// contentViewport is the logical area available to the preview.
func contentViewport(win image.Point, dpr float64) transform.Viewport {
	pad := 2 * margin * dpr
	return transform.Viewport{
		Width:  math.Max(1, (float64(win.X)-pad)/dpr),
		Height: math.Max(1, (float64(win.Y)-pad-statusHeight*dpr)/dpr),
	}
}

// cardOrigin centres a backing-sized preview in the area above the status line.
func cardOrigin(win image.Point, backing int, dpr float64) image.Point {
	bar := int(math.Round(statusHeight * dpr))
	return image.Pt((win.X-backing)/2, (win.Y-bar-backing)/2)
}

func (e *Editor) setMessage(text string, isErr bool) {
	e.mu.Lock()
	e.msg = message{text: text, err: isErr, until: time.Now().Add(messageTTL)}
	e.mu.Unlock()
}

func (e *Editor) notifyClose() {
	e.closeOnce.Do(func() {
		if e.opts.OnClose != nil {
			e.opts.OnClose()
		}
	})
}

func (e *Editor) Main(s screen.Screen) {
	sess := e.opts.Session
	log := logging.Logger()

	winSize := windowSize(sess.Preview().BackingSize(), e.dpr)
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: winSize.X, Height: winSize.Y, Title: "artframe"})
	if err != nil {
		log.Error("new window", "err", err)
		return
	}
	defer w.Release()
	defer e.notifyClose()

	sess.OnRedraw(func(img *image.RGBA) {
		e.mu.Lock()
		e.frame = img
		e.mu.Unlock()
		w.Send(paint.Event{})
	})
	sess.OnStatus(func(st session.Status) {
		if st == session.StatusError {
			_, err := sess.Status()
			e.setMessage(fmt.Sprintf("could not load image: %v", err), true)
		}
		w.Send(paint.Event{})
	})
	sess.OnTransformChange(func(st transform.State) {
		if err := SaveState(e.opts.StatePath, st); err != nil {
			log.Warn("save state", "path", e.opts.StatePath, "err", err)
		}
	})
	sess.OnExport(func(res render.Result, err error) {
		e.finishExport(res, err)
		w.Send(paint.Event{})
	})
	defer func() {
		sess.OnRedraw(nil)
		sess.OnStatus(nil)
		sess.OnExport(nil)
	}()
	sess.Redraw()

	tracker := pointer.NewTracker(e.dpr)
	card := &render.Card{Options: render.DefaultCardOptions()}
	card.Options.Radius = int(math.Round(float64(card.Options.Radius) * e.dpr))
	card.Options.Offset = card.Options.Offset.Mul(int(math.Max(1, math.Round(e.dpr))))

	place := func() image.Point {
		o := cardOrigin(winSize, sess.Preview().BackingSize(), e.dpr)
		tracker.OriginX, tracker.OriginY = float64(o.X), float64(o.Y)
		return o
	}

	for {
		switch ev := w.NextEvent().(type) {
		case lifecycle.Event:
			if ev.To == lifecycle.StageDead {
				sess.FlushChange()
				return
			}
		case size.Event:
			winSize = ev.Size()
			vp := contentViewport(winSize, e.dpr)
			sess.SetViewport(&vp, e.dpr)
			place()
		case paint.Event:
			e.paint(s, w, winSize, card, place())
		case mouse.Event:
			if pe, ok := tracker.Mouse(ev); ok {
				sess.HandlePointer(pe)
			}
		case touch.Event:
			if pe, ok := tracker.Touch(ev); ok {
				sess.HandlePointer(pe)
			}
		case key.Event:
			cmd := commandFor(ev)
			switch cmd.action {
			case actionNone:
			case actionQuit:
				sess.FlushChange()
				return
			case actionExport:
				e.setMessage("exporting...", false)
				w.Send(paint.Event{})
				go func() { _, _ = sess.Export(context.Background()) }()
			default:
				cmd.apply(sess)
			}
		case error:
			log.Error("window event", "err", ev)
		}
	}
}

// finishExport writes, copies and announces a finished export.
func (e *Editor) finishExport(res render.Result, err error) {
	log := logging.Logger()
	if errors.Is(err, session.ErrExportInProgress) {
		e.setMessage("export already running", false)
		return
	}
	if err != nil {
		e.setMessage(fmt.Sprintf("export failed: %v (press E to retry)", err), true)
		e.opts.Notifier.Failure(err)
		return
	}

	path := OutputPath(e.opts.Output, e.opts.SaveDir, res.Format)
	if err := WriteResult(path, res); err != nil {
		e.setMessage(fmt.Sprintf("%v (press E to retry)", err), true)
		e.opts.Notifier.Failure(err)
		return
	}
	log.Info("export written", "path", path)
	e.opts.Notifier.Export(path, nil)
	text := "exported " + path

	if e.opts.Copy {
		img, err := DecodeResult(res)
		if err == nil {
			err = clipboard.WriteImage(img)
		}
		if err != nil {
			log.Warn("copy export", "err", err)
			text += " (copy failed)"
		} else {
			e.opts.Notifier.Copy(path)
			text += " and copied"
		}
	}
	e.setMessage(text, false)
}

func (e *Editor) statusLine() (string, bool) {
	e.mu.Lock()
	msg := e.msg
	e.mu.Unlock()
	if msg.text != "" && time.Now().Before(msg.until) {
		return msg.text, msg.err
	}
	sess := e.opts.Session
	st, err := sess.Status()
	switch st {
	case session.StatusReady:
		return sess.State().String(), false
	case session.StatusError:
		return fmt.Sprintf("error: %v", err), true
	default:
		return st.String(), false
	}
}

func shortcutHint() string {
	var parts []string
	for _, sc := range Shortcuts() {
		parts = append(parts, sc.Keys+" "+sc.Label)
	}
	return strings.Join(parts, "  ")
}

func (e *Editor) paint(s screen.Screen, w screen.Window, win image.Point, card *render.Card, at image.Point) {
	if win.X <= 0 || win.Y <= 0 {
		return
	}
	b, err := s.NewBuffer(win)
	if err != nil {
		logging.Logger().Error("new buffer", "err", err)
		return
	}
	defer b.Release()
	dst := b.RGBA()
	th := e.opts.Theme

	draw.Draw(dst, dst.Bounds(), image.NewUniform(th.Window), image.Point{}, draw.Src)

	e.mu.Lock()
	frame := e.frame
	e.mu.Unlock()
	if frame != nil {
		card.Draw(dst, frame, at)
	}

	face := render.Face(statusFont * e.dpr)
	baseline := win.Y - int(math.Round(statusHeight*e.dpr/2)) + face.Metrics().Ascent.Ceil()/2
	x := int(math.Round(margin * e.dpr / 2))
	text, isErr := e.statusLine()
	c := th.Status
	if isErr {
		c = th.Error
	}
	render.DrawText(dst, text, face, c, x, baseline)
	hint := shortcutHint()
	hw := render.MeasureText(face, hint)
	if hw+x < win.X-render.MeasureText(face, text)-2*x {
		render.DrawText(dst, hint, face, th.Status, win.X-hw-x, baseline)
	}

	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}
