// Package notify delivers transition events to the configured channels.
package notify

import (
	"context"
	"log/slog"

	"trackerwatch/internal/model"
)

// Notifier is implemented once per channel kind. Send delivers one event
// to one external system; a failure is returned, never retried here.
type Notifier interface {
	// Name identifies the channel in logs ("discord", "telegram", ...).
	Name() string

	// Send delivers the event. The checker guarantees the event exists
	// exactly once per transition, so delivery is at-most-one-attempt.
	Send(ctx context.Context, event model.TransitionEvent) error
}

// Dispatcher fans one event out to every enabled channel. Channels are
// independent: a failure is logged with channel and target identity and
// never blocks the remaining channels.
type Dispatcher struct {
	channels []Notifier
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given channels.
func NewDispatcher(channels []Notifier, log *slog.Logger) *Dispatcher {
	return &Dispatcher{channels: channels, log: log}
}

// Dispatch sends the event to all channels, collecting failures without
// short-circuiting. It returns the number of successful deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.TransitionEvent) int {
	delivered := 0
	for _, ch := range d.channels {
		if err := ch.Send(ctx, event); err != nil {
			d.log.Error("send notification",
				"channel", ch.Name(), "target", event.TrackerName, "error", err)
			continue
		}
		d.log.Info("notification sent", "channel", ch.Name(), "target", event.TrackerName)
		delivered++
	}
	return delivered
}
