//go:build linux

package platform

import (
	"github.com/godbus/dbus/v5"
)

const (
	notifyService = "org.freedesktop.Notifications"
	notifyPath    = "/org/freedesktop/Notifications"
)

// Notify sends a desktop notification over the org.freedesktop.Notifications D-Bus interface.
func Notify(title, body string, opts Options) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	defer conn.Close()

	hints := map[string]dbus.Variant{}
	if opts.Critical {
		hints["urgency"] = dbus.MakeVariant(byte(2))
	}
	obj := conn.Object(notifyService, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyService+".Notify", 0,
		AppName, uint32(0), opts.IconPath, title, body, []string{}, hints, opts.expire())
	return call.Err
}
