// Package checker runs a single tracker check and owns the open/closed
// state machine.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trackerwatch/internal/detector"
	"trackerwatch/internal/fetcher"
	"trackerwatch/internal/model"
)

// Checker composes the fetcher and detector for one target and compares
// the new verdict against the prior persisted state. It is the only place
// a TransitionEvent is created: states are {unknown, closed, open} and
// only the not-open -> open edge produces an event.
type Checker struct {
	fetcher *fetcher.Fetcher
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Checker.
func New(f *fetcher.Fetcher, log *slog.Logger) *Checker {
	return &Checker{
		fetcher: f,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Check fetches and evaluates one target against its prior state.
//
// The returned state always carries an advanced LastCheck timestamp. The
// returned error is the non-fatal fetch failure, surfaced so the caller can
// log and record it; when it is non-nil the status is unchanged and no
// event is produced. An indeterminate detection likewise never rewrites a
// known status.
func (c *Checker) Check(ctx context.Context, target model.Target, prior model.TargetState) (model.TargetState, *model.TransitionEvent, error) {
	now := c.now()

	next := prior
	if next.Status == "" {
		next.Status = model.StatusUnknown
	}
	next.LastCheck = now

	content, err := c.fetcher.Fetch(ctx, target.CheckURL(), c.fetcher.UseSolver(target.UseFlareSolverr))
	if err != nil {
		return next, nil, err
	}

	switch detector.Evaluate(content, target.Rule) {
	case model.OutcomeOpen:
		if next.Status != model.StatusOpen {
			event := &model.TransitionEvent{
				TrackerName: target.Name,
				TrackerURL:  target.URL,
				SignupURL:   target.CheckURL(),
				Message:     fmt.Sprintf("Registration is now open at %s!", target.Name),
				Status:      model.StatusOpen,
				Timestamp:   now,
			}
			next.Status = model.StatusOpen
			next.LastNotified = &now
			c.log.Info("signup is now open", "target", target.Name)
			return next, event, nil
		}
		next.Status = model.StatusOpen

	case model.OutcomeClosed:
		if next.Status == model.StatusOpen {
			c.log.Info("signup is now closed", "target", target.Name)
		}
		next.Status = model.StatusClosed

	case model.OutcomeIndeterminate:
		// Status untouched; only the check timestamp advances.
		c.log.Debug("detection indeterminate", "target", target.Name)
	}

	return next, nil, nil
}
