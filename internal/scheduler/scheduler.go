// Package scheduler drives the periodic check cycle.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"trackerwatch/internal/checker"
	"trackerwatch/internal/history"
	"trackerwatch/internal/model"
	"trackerwatch/internal/notify"
	"trackerwatch/internal/state"
)

// Scheduler runs the monitoring loop: each cycle it checks every enabled
// target in configured order, persists the updated state once, then
// dispatches the cycle's transition events to all channels.
type Scheduler struct {
	targets    []model.Target
	checker    *checker.Checker
	store      state.Store
	dispatcher *notify.Dispatcher
	history    *history.Store // nil when history is disabled
	log        *slog.Logger

	interval time.Duration
	limiter  *rate.Limiter
}

// New creates a Scheduler. interval is the time between cycle starts and
// delay the minimum spacing between per-target fetches within a cycle.
func New(targets []model.Target, chk *checker.Checker, store state.Store,
	dispatcher *notify.Dispatcher, interval, delay time.Duration, log *slog.Logger) *Scheduler {

	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	return &Scheduler{
		targets:    targets,
		checker:    chk,
		store:      store,
		dispatcher: dispatcher,
		log:        log,
		interval:   interval,
		limiter:    limiter,
	}
}

// SetHistory attaches an optional check-history store.
func (s *Scheduler) SetHistory(h *history.Store) {
	s.history = h
}

// Run starts the scheduler loop, blocking until ctx is cancelled. The first
// cycle runs immediately; subsequent cycles start on a fixed interval from
// cycle start, so a slow cycle does not additively drift.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("starting monitor",
		"targets", len(s.targets), "interval", s.interval)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle checks every target once, saves the state mapping, then
// dispatches collected events. Cancellation is observed between targets;
// the in-flight check completes and its result is still persisted.
func (s *Scheduler) runCycle(ctx context.Context) {
	states, err := s.store.Load()
	if err != nil {
		s.log.Error("load state, starting cycle with empty state", "error", err)
		states = map[string]model.TargetState{}
	}

	var events []model.TransitionEvent

	for _, target := range s.targets {
		if ctx.Err() != nil {
			break
		}
		// Inter-target pacing; doubles as a cancellation point. The
		// limiter starts with one token, so the first target of a
		// cycle proceeds immediately.
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		prior, ok := states[target.Name]
		if !ok {
			prior = model.TargetState{Status: model.StatusUnknown}
		}

		started := time.Now()
		next, event, checkErr := s.checker.Check(ctx, target, prior)
		if checkErr != nil {
			s.log.Warn("check failed", "target", target.Name, "error", checkErr)
		}

		states[target.Name] = next
		if event != nil {
			events = append(events, *event)
		}

		s.recordCheck(ctx, target.Name, next, checkErr, time.Since(started), event != nil)
	}

	// Persist before dispatch: losing a notification is recoverable,
	// re-sending one on restart is not.
	if err := s.store.Save(states); err != nil {
		s.log.Error("save state; a crash before the next successful save may re-notify",
			"error", err)
	}

	for _, event := range events {
		s.dispatcher.Dispatch(ctx, event)
	}
}

func (s *Scheduler) recordCheck(ctx context.Context, name string, st model.TargetState,
	checkErr error, elapsed time.Duration, notified bool) {

	if s.history == nil {
		return
	}
	rec := history.CheckRecord{
		TargetName: name,
		Status:     st.Status,
		DurationMS: elapsed.Milliseconds(),
		Notified:   notified,
		CheckedAt:  st.LastCheck,
	}
	if checkErr != nil {
		rec.FetchError = checkErr.Error()
	}
	if err := s.history.RecordCheck(ctx, &rec); err != nil {
		s.log.Error("record check history", "target", name, "error", err)
	}
}
