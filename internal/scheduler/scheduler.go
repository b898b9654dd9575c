// Package scheduler polls active raffles and fires their draws when due.
package scheduler

import (
	"context"
	"time"

	"github.com/google/logger"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/raffle-ticketing/internal/model"
)

// Checker is the part of the raffle service the scheduler drives.
type Checker interface {
	ActiveRaffleIDs(ctx context.Context) ([]string, error)
	CheckDraw(ctx context.Context, raffleID string) (*model.DrawResult, error)
}

// Scheduler re-evaluates every active raffle on a fixed interval.  Sales
// triggers are also checked inline after each purchase; the scheduler
// exists mainly for date triggers, which fire with no request to carry them.
type Scheduler struct {
	checker  Checker
	interval time.Duration
	limit    int
}

// New returns a Scheduler.  A non-positive interval defaults to one second
// and a non-positive limit to four concurrent checks.
func New(checker Checker, interval time.Duration, limit int) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if limit <= 0 {
		limit = 4
	}
	return &Scheduler{checker: checker, interval: interval, limit: limit}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	logger.Infof("draw scheduler started (interval=%s)", s.interval)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("draw scheduler stopped")
			return ctx.Err()
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks every active raffle once and returns how many draws fired.
// Per-raffle errors are logged and do not stop the others.
func (s *Scheduler) Tick(ctx context.Context) int {
	ids, err := s.checker.ActiveRaffleIDs(ctx)
	if err != nil {
		logger.Errorf("scheduler: list active raffles: %v", err)
		return 0
	}

	fired := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.checker.CheckDraw(gctx, id)
			if err != nil {
				logger.Errorf("scheduler: check raffle %s: %v", id, err)
				return nil
			}
			fired[i] = res != nil
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range fired {
		if f {
			n++
		}
	}
	return n
}
