package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/daynight/internal/config"
	"github.com/jmylchreest/daynight/internal/dbus"
)

// notifyTimeout bounds a single Notify call.
const notifyTimeout = 5 * time.Second

// Sender delivers a notification to the desktop.
type Sender interface {
	Notify(ctx context.Context, notification *dbus.Notification) (uint32, error)
}

// Notifier surfaces daynight warnings as desktop notifications.
// The same key is not notified again within the minimum interval.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sender Sender
	now    func() time.Time

	// Rate limiting
	lastNotifyTime map[string]time.Time // key -> last notification time
	minInterval    time.Duration

	enabled bool
}

// NewNotifier creates a Notifier. A nil sender only logs.
func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		sender:         sender,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    config.DefaultMinNotifyEvery,
		enabled:        true,
	}
}

// Configure applies the [notifications] section.
func (n *Notifier) Configure(cfg config.NotificationsConfig) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = cfg.Enabled
	n.minInterval = cfg.MinInterval.Duration()
}

// Notify sends a notification if not rate-limited.
func (n *Notifier) Notify(key, summary, body string, urgency dbus.Urgency) {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return
	}

	now := n.now()
	if lastTime, ok := n.lastNotifyTime[key]; ok && now.Sub(lastTime) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("notification rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now
	sender := n.sender
	n.mu.Unlock()

	if sender == nil {
		n.logger.Debug("notification skipped: no sender", "key", key, "summary", summary)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	n.logger.Debug("sending notification", "key", key, "summary", summary, "urgency", urgency)
	if _, err := sender.Notify(ctx, dbus.NewNotification(summary, body, urgency)); err != nil {
		n.logger.Warn("failed to send notification", "key", key, "summary", summary, "error", err)
	}
}

// Warn implements engine.Warner.
func (n *Notifier) Warn(key, summary, body string) {
	n.Notify(key, summary, body, dbus.UrgencyNormal)
}

// NotifyConfigError sends a notification about a config reload that failed validation.
func (n *Notifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Keeping the previous configuration: "+err.Error(),
		dbus.UrgencyNormal,
	)
}
