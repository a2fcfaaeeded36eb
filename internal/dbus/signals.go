package dbus

import (
	"fmt"

	"github.com/jmylchreest/daynight/internal/store"
)

// EmitThemesChanged emits the ThemesChanged signal for an evaluation that
// wrote a new pair. Evaluations that wrote nothing are ignored.
func (s *ControlServer) EmitThemesChanged(ev *store.Evaluation) error {
	if ev == nil || !ev.Wrote {
		return nil
	}
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(ControlPath, ControlInterface+".ThemesChanged",
		string(ev.Phase), ev.Desired.UI, ev.Desired.Syntax)
	if err != nil {
		return fmt.Errorf("failed to emit ThemesChanged signal: %w", err)
	}

	s.logger.Debug("emitted ThemesChanged signal", "phase", ev.Phase, "themes", ev.Desired)
	return nil
}
