package platform

import "time"

// AppName is reported as the sending application where the platform supports it.
const AppName = "artframe"

// Options configures how a notification is displayed on the host platform.
type Options struct {
	// IconPath, when non-empty, points to an image file the notification center
	// should display with the notification if supported by the platform.
	IconPath string
	// Timeout is how long the notification stays visible. Zero uses the
	// platform default.
	Timeout time.Duration
	// Critical marks failures so they are not dismissed automatically.
	Critical bool
}

func (o Options) expire() int32 {
	switch {
	case o.Critical:
		return 0
	case o.Timeout > 0:
		return int32(o.Timeout / time.Millisecond)
	}
	return -1
}
