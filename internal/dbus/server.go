package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/daynight/internal/store"
)

const (
	// ControlInterface is the control interface name.
	ControlInterface = "io.github.jmylchreest.DayNight"
	// ControlPath is the control object path.
	ControlPath = "/io/github/jmylchreest/DayNight"
	// ControlBusName is the bus name to claim.
	ControlBusName = "io.github.jmylchreest.DayNight"
)

// ErrNameTaken is returned by Start when another process owns the control bus name.
var ErrNameTaken = errors.New("bus name already taken")

// DefaultEvaluateTimeout bounds how long an Evaluate call waits for the
// queued evaluation to finish.
const DefaultEvaluateTimeout = 30 * time.Second

// EvaluateHandler queues a manual evaluation and waits for its result.
type EvaluateHandler func(ctx context.Context) (*store.Evaluation, error)

// StatusHandler returns the daemon status.
type StatusHandler func() *store.Status

// ControlServer implements the io.github.jmylchreest.DayNight D-Bus interface.
type ControlServer struct {
	conn   *dbus.Conn
	logger *slog.Logger

	// Handlers
	evaluateHandler EvaluateHandler
	statusHandler   StatusHandler

	evaluateTimeout time.Duration

	mu      sync.RWMutex
	running bool
}

// NewControlServer creates a new ControlServer.
func NewControlServer(logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{
		logger:          logger,
		evaluateTimeout: DefaultEvaluateTimeout,
	}
}

// SetEvaluateHandler sets the handler called for Evaluate.
func (s *ControlServer) SetEvaluateHandler(handler EvaluateHandler) {
	s.evaluateHandler = handler
}

// SetStatusHandler sets the handler called for Status.
func (s *ControlServer) SetStatusHandler(handler StatusHandler) {
	s.statusHandler = handler
}

// SetEvaluateTimeout sets how long Evaluate waits for a result.
func (s *ControlServer) SetEvaluateTimeout(timeout time.Duration) {
	s.evaluateTimeout = timeout
}

// Start connects to the session bus and exports the control service.
func (s *ControlServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.StartOn(conn)
}

// StartOn exports the control service on an existing connection.
func (s *ControlServer) StartOn(conn *dbus.Conn) error {
	s.conn = conn

	if err := conn.Export(s, ControlPath, ControlInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: ControlPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    ControlInterface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ControlPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ControlBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("%s: %w", ControlBusName, ErrNameTaken)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus control server started", "interface", ControlInterface, "path", ControlPath)
	return nil
}

// Stop releases the bus name.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(ControlBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus control server stopped")
	return nil
}

// Evaluate queues a manual evaluation and returns its id once it has run.
// D-Bus method: Evaluate() -> s
func (s *ControlServer) Evaluate() (string, *dbus.Error) {
	s.logger.Debug("Evaluate called")

	if s.evaluateHandler == nil {
		return "", dbus.MakeFailedError(fmt.Errorf("evaluation not available"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.evaluateTimeout)
	defer cancel()

	ev, err := s.evaluateHandler(ctx)
	if err != nil && ev == nil {
		return "", dbus.MakeFailedError(err)
	}
	return ev.ID, nil
}

// Status returns the daemon status as JSON.
// D-Bus method: Status() -> s
func (s *ControlServer) Status() (string, *dbus.Error) {
	s.logger.Debug("Status called")

	if s.statusHandler == nil {
		return "", dbus.MakeFailedError(fmt.Errorf("status not available"))
	}

	data, err := json.Marshal(s.statusHandler())
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// controlMethods returns the D-Bus method introspection data.
func controlMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Evaluate",
			Args: []introspect.Arg{
				{Name: "evaluation_id", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "status_json", Type: "s", Direction: "out"},
			},
		},
	}
}

// controlSignals returns the D-Bus signal introspection data.
func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "ThemesChanged",
			Args: []introspect.Arg{
				{Name: "phase", Type: "s"},
				{Name: "ui", Type: "s"},
				{Name: "syntax", Type: "s"},
			},
		},
	}
}
