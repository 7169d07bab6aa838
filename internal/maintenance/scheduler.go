// Package maintenance runs periodic housekeeping on the study database.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/tutoriq/tutoriq-be/internal/database"
)

// Pruner deletes conversations created before a cutoff.
type Pruner interface {
	PruneConversations(ctx context.Context, olderThan time.Time) (int64, error)
}

// Scheduler prunes expired history and optimizes the database on a cron schedule.
type Scheduler struct {
	pruner        Pruner
	db            *sql.DB
	retentionDays int
	schedule      cron.Schedule
	done          chan struct{}
	stopOnce      sync.Once
}

// NewScheduler creates a scheduler. A retentionDays of zero keeps history forever.
func NewScheduler(pruner Pruner, db *sql.DB, retentionDays int, spec string) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}
	return &Scheduler{
		pruner:        pruner,
		db:            db,
		retentionDays: retentionDays,
		schedule:      schedule,
		done:          make(chan struct{}),
	}, nil
}

// Run blocks until ctx is cancelled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Int("retention_days", s.retentionDays).Msg("Starting maintenance scheduler")
	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Stopping maintenance scheduler")
			return nil
		case <-s.done:
			timer.Stop()
			log.Info().Msg("Stopping maintenance scheduler")
			return nil
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("Maintenance run failed")
			}
		}
	}
}

// Stop halts the scheduler. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// RunOnce performs one maintenance pass and returns how many conversations were pruned.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	var pruned int64
	if s.retentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
		n, err := s.pruner.PruneConversations(ctx, cutoff)
		if err != nil {
			return 0, fmt.Errorf("prune conversations: %w", err)
		}
		pruned = n
		if n > 0 {
			log.Info().Int64("conversations", n).Time("cutoff", cutoff).Msg("Pruned expired history")
		}
	}

	if err := database.Optimize(ctx, s.db); err != nil {
		return pruned, fmt.Errorf("optimize database: %w", err)
	}
	return pruned, nil
}
