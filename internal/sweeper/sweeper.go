// Package sweeper deactivates sessions that went quiet, on a cron schedule.
// Marked sessions keep their state and context; the next inbound message
// re-activates them.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ndomo/agentline/internal/store"
	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Opts holds parameters for creating a Sweeper.
type Opts struct {
	Store    *store.Store
	Schedule string        // 5-field cron expression
	IdleFor  time.Duration // inactivity threshold
}

// Sweeper marks idle sessions inactive on a schedule.
type Sweeper struct {
	store    *store.Store
	schedule cron.Schedule
	idleFor  time.Duration
}

func New(opts Opts) (*Sweeper, error) {
	if opts.Store == nil {
		return nil, errors.New("sweeper: store is required")
	}
	if opts.IdleFor <= 0 {
		return nil, errors.New("sweeper: idle threshold must be positive")
	}
	sched, err := cronParser.Parse(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("sweeper: parse schedule %q: %w", opts.Schedule, err)
	}
	return &Sweeper{store: opts.Store, schedule: sched, idleFor: opts.IdleFor}, nil
}

// Run fires the sweep at each scheduled time until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		next := s.schedule.Next(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			s.Sweep()
		}
	}
}

// Sweep runs one pass immediately and returns how many sessions it idled.
func (s *Sweeper) Sweep() int64 {
	cutoff := time.Now().Add(-s.idleFor)
	n, err := s.store.MarkIdle(cutoff)
	if err != nil {
		log.Printf("sweeper: mark idle: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("sweeper: marked %d idle session(s) inactive", n)
	}
	return n
}
