package darkmode

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	portalBusName   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalReadOne   = "org.freedesktop.portal.Settings.ReadOne"
	portalRead      = "org.freedesktop.portal.Settings.Read"
	appearanceNS    = "org.freedesktop.appearance"
	colorSchemeKey  = "color-scheme"
	colorSchemeDark = uint32(1) // 0 = no preference, 1 = prefer dark, 2 = prefer light
)

// PortalDetector reads the color-scheme setting from the XDG desktop portal.
type PortalDetector struct {
	conn *dbus.Conn
}

// NewPortalDetector creates a PortalDetector. A nil conn uses the shared session bus.
func NewPortalDetector(conn *dbus.Conn) *PortalDetector {
	return &PortalDetector{conn: conn}
}

// Name implements Detector.
func (d *PortalDetector) Name() string {
	return "portal"
}

// Detect implements Detector.
func (d *PortalDetector) Detect(ctx context.Context) (bool, error) {
	conn := d.conn
	if conn == nil {
		var err error
		conn, err = dbus.SessionBus()
		if err != nil {
			return false, &CommandError{Command: portalRead, Err: fmt.Errorf("connect to session bus: %w", err)}
		}
	}

	obj := conn.Object(portalBusName, portalPath)

	// ReadOne is portal v2; older portals only have Read, which wraps the
	// value in an extra variant.
	var value dbus.Variant
	err := obj.CallWithContext(ctx, portalReadOne, 0, appearanceNS, colorSchemeKey).Store(&value)
	if err != nil {
		if err = obj.CallWithContext(ctx, portalRead, 0, appearanceNS, colorSchemeKey).Store(&value); err != nil {
			return false, &CommandError{Command: portalRead, Err: err}
		}
	}

	scheme, err := colorScheme(value)
	if err != nil {
		return false, &CommandError{Command: portalRead, Err: err}
	}
	return scheme == colorSchemeDark, nil
}

// colorScheme unwraps nested variants down to the uint32 setting.
func colorScheme(v dbus.Variant) (uint32, error) {
	for {
		switch val := v.Value().(type) {
		case dbus.Variant:
			v = val
		case uint32:
			return val, nil
		default:
			return 0, fmt.Errorf("unexpected color-scheme type %T", val)
		}
	}
}
