// Package dbus carries daynight's session bus traffic. It exports the
// io.github.jmylchreest.DayNight control interface from the daemon,
// provides a Client for the CLI to call it, and posts desktop
// notifications through org.freedesktop.Notifications.
package dbus
