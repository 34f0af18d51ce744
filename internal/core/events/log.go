package events

import (
	"log/slog"
)

// AttachLogger traces every event on the bus at debug level. Components log
// their own failures, so nothing here is logged above debug.
func AttachLogger(b *Bus, logger *slog.Logger) (detach func()) {
	if logger == nil {
		logger = slog.Default()
	}

	return b.SubscribeAll(func(e Event) {
		logger.Debug("Event", "kind", e.Kind(), "event", e)
	})
}
