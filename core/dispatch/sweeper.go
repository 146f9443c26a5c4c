package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/responder/core/logger"
	"github.com/kilianp07/responder/core/model"
)

// Sweeper retries open incidents on a cron schedule.
type Sweeper struct {
	mgr    *AssignmentManager
	cron   *cron.Cron
	logger logger.Logger
}

// NewSweeper schedules Sweep on the manager. Overlapping runs are skipped.
func NewSweeper(mgr *AssignmentManager, schedule string, log logger.Logger) (*Sweeper, error) {
	if mgr == nil {
		return nil, fmt.Errorf("dispatch: nil manager provided to NewSweeper")
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if log == nil {
		log = nopLogger{}
	}
	s := &Sweeper{
		mgr:    mgr,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: log,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("dispatch: schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.logger.Infof("rematch sweeper started")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Infof("rematch sweeper stopped")
}

// Sweep matches every open incident once and returns how many were assigned.
func (s *Sweeper) Sweep(ctx context.Context) int {
	open, err := s.mgr.store.Incidents(ctx, model.StatusOpen)
	if err != nil {
		s.logger.Errorf("rematch: list open incidents: %v", err)
		return 0
	}
	assigned := 0
	for _, inc := range open {
		if ctx.Err() != nil {
			break
		}
		out, err := s.mgr.assign(ctx, inc.ID, TriggerRematch)
		switch {
		case errors.Is(err, ErrIncidentNotOpen):
			continue
		case err != nil:
			s.logger.Errorf("rematch %s: %v", inc.ID, err)
		case out.Matched:
			assigned++
		}
	}
	if len(open) > 0 {
		s.logger.Debugw("rematch sweep", map[string]any{"open": len(open), "assigned": assigned})
	}
	return assigned
}
