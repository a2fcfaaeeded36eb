package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/daynight/internal/store"
)

// ErrNotRunning is returned by Connect when no daemon owns the control bus name.
var ErrNotRunning = errors.New("daynightd is not running")

// Client calls the daemon's control interface.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private session bus connection and checks that the
// daemon is running.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var running bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, ControlBusName).Store(&running)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to query bus name: %w", err)
	}
	if !running {
		conn.Close()
		return nil, ErrNotRunning
	}

	return &Client{
		conn: conn,
		obj:  conn.Object(ControlBusName, ControlPath),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Evaluate asks the daemon to evaluate now and returns the evaluation id.
func (c *Client) Evaluate(ctx context.Context) (string, error) {
	var id string
	if err := c.obj.CallWithContext(ctx, ControlInterface+".Evaluate", 0).Store(&id); err != nil {
		return "", fmt.Errorf("evaluate: %w", err)
	}
	return id, nil
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (*store.Status, error) {
	var raw string
	if err := c.obj.CallWithContext(ctx, ControlInterface+".Status", 0).Store(&raw); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	var status store.Status
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// Notifications posts to the desktop notification daemon.
type Notifications struct {
	conn *dbus.Conn
}

// NewNotifications creates a notification client on conn. A nil conn uses
// the shared session bus, connected on first use.
func NewNotifications(conn *dbus.Conn) *Notifications {
	return &Notifications{conn: conn}
}

// Notify posts a notification and returns the id the server assigned.
func (n *Notifications) Notify(ctx context.Context, notification *Notification) (uint32, error) {
	conn := n.conn
	if conn == nil {
		var err error
		conn, err = dbus.SessionBus()
		if err != nil {
			return 0, fmt.Errorf("failed to connect to session bus: %w", err)
		}
	}

	obj := conn.Object(NotificationsBusName, NotificationsPath)
	var id uint32
	err := obj.CallWithContext(ctx, NotificationsInterface+".Notify", 0, notification.args()...).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}
	return id, nil
}
