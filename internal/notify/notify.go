package notify

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/artframe/internal/logging"
	"github.com/example/artframe/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventExport emits a notification when an export is written.
	EventExport Event = "export"
	// EventCopy emits a notification when an export is copied to the clipboard.
	EventCopy Event = "copy"
	// EventFailure emits a notification when an export fails.
	EventFailure Event = "failure"
)

// EventPreference describes formatting for a notification event.
type EventPreference struct {
	Template string
}

// Preferences describes notification behaviour loaded from configuration.
type Preferences struct {
	Title  string
	Events map[Event]EventPreference
}

// DefaultPreferences returns the default notification settings.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "artframe",
		Events: map[Event]EventPreference{
			EventExport:  {Template: "Exported %s"},
			EventCopy:    {Template: "Copied %s to clipboard"},
			EventFailure: {Template: "Export failed: %s"},
		},
	}
}

// LoadPreferences reads template overrides from environment variables.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	if v := strings.TrimSpace(os.Getenv("ARTFRAME_NOTIFY_TITLE")); v != "" {
		prefs.Title = v
	}
	apply := func(key string, event Event) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			eventPrefs := prefs.Events[event]
			eventPrefs.Template = v
			prefs.Events[event] = eventPrefs
		}
	}
	apply("ARTFRAME_NOTIFY_EXPORT_TEXT", EventExport)
	apply("ARTFRAME_NOTIFY_COPY_TEXT", EventCopy)
	apply("ARTFRAME_NOTIFY_FAILURE_TEXT", EventFailure)
	return prefs
}

// SendFunc delivers a formatted notification.
type SendFunc func(title, body string, opts platform.Options) error

// Notifier sends OS-level notifications based on the configured preferences.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool

	// Send defaults to platform.Notify.
	Send SendFunc
}

// New creates a new Notifier using the provided preferences.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Events: make(map[Event]EventPreference, len(prefs.Events))}
	for k, v := range prefs.Events {
		cloned.Events[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool), Send: platform.Notify}
}

// Enable toggles the notifier for the provided event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	if n.enabled == nil {
		n.enabled = make(map[Event]bool)
	}
	n.enabled[event] = enabled
}

// Export announces a written export. The file doubles as the icon when it
// exists, otherwise a thumbnail of img is used.
func (n *Notifier) Export(path string, img image.Image) {
	if !n.enabledFor(EventExport) {
		return
	}
	detail := strings.TrimSpace(path)
	opts := platform.Options{}
	if abs, err := filepath.Abs(path); err == nil && detail != "" {
		detail = abs
		if _, statErr := os.Stat(abs); statErr == nil {
			opts.IconPath = abs
		}
	}
	if opts.IconPath == "" && img != nil {
		if icon, cleanup, err := createPreview(img); err != nil {
			logging.Logger().Warn("notification preview", "err", err)
		} else {
			defer cleanup()
			opts.IconPath = icon
		}
	}
	if detail == "" {
		detail = "image"
	}
	n.dispatch(EventExport, detail, opts)
}

// Copy sends a clipboard notification.
func (n *Notifier) Copy(detail string) {
	if !n.enabledFor(EventCopy) {
		return
	}
	if strings.TrimSpace(detail) == "" {
		detail = "image"
	}
	n.dispatch(EventCopy, detail, platform.Options{})
}

// Failure reports an export error.
func (n *Notifier) Failure(err error) {
	if err == nil || !n.enabledFor(EventFailure) {
		return
	}
	n.dispatch(EventFailure, err.Error(), platform.Options{Critical: true})
}

// Enabled reports whether event notifications would be sent.
func (n *Notifier) Enabled(event Event) bool { return n.enabledFor(event) }

func (n *Notifier) enabledFor(event Event) bool {
	if n == nil {
		return false
	}
	if n.enabled == nil {
		return false
	}
	return n.enabled[event]
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if !n.enabledFor(event) {
		return
	}
	template := strings.TrimSpace(n.template(event))
	if template == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(template, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	send := n.Send
	if send == nil {
		send = platform.Notify
	}
	if err := send(n.prefs.Title, body, opts); err != nil {
		logging.Logger().Warn("notification failed", "event", string(event), "err", err)
	}
}

func (n *Notifier) template(event Event) string {
	if n == nil {
		return ""
	}
	if pref, ok := n.prefs.Events[event]; ok {
		return pref.Template
	}
	return ""
}

func createPreview(img image.Image) (string, func(), error) {
	f, err := os.CreateTemp("", "artframe-preview-*.png")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Logger().Warn("remove preview", "err", err)
		}
	}
	return path, cleanup, nil
}
