package ecs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SchedulerStats provides statistics about system execution.
type SchedulerStats struct {
	SystemCount      int
	Ticks            uint64
	TotalInvocations int64
	Systems          []SystemStats
}

// SystemStats provides execution statistics for a single system. Durations are
// per tick: the time spent in all of the system's invocations during one tick.
type SystemStats struct {
	Name          string
	Invocations   int64
	LastMatched   int
	Ticks         int64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AvgDuration   time.Duration
	LastDuration  time.Duration
	TotalDuration time.Duration
}

type systemStatsInternal struct {
	name          string
	invocations   int64
	ticks         int64
	minDuration   time.Duration
	maxDuration   time.Duration
	totalDuration time.Duration
	lastDuration  time.Duration
	lastMatched   int

	tickDuration time.Duration
	tickMatched  int
}

func (s *systemStatsInternal) beginTick() {
	s.tickDuration = 0
	s.tickMatched = 0
}

func (s *systemStatsInternal) record(d time.Duration) {
	s.invocations++
	s.tickMatched++
	s.tickDuration += d
}

func (s *systemStatsInternal) endTick() {
	s.ticks++
	s.lastDuration = s.tickDuration
	s.lastMatched = s.tickMatched
	s.totalDuration += s.tickDuration

	if s.tickDuration < s.minDuration {
		s.minDuration = s.tickDuration
	}
	if s.tickDuration > s.maxDuration {
		s.maxDuration = s.tickDuration
	}
}

// Stats returns statistics about system execution. Timings are only collected
// when the registry was created WithStats(true).
func (r *Registry) Stats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(r.systems),
		Ticks:       r.tick,
		Systems:     make([]SystemStats, len(r.systems)),
	}

	for i, sys := range r.systems {
		internal := sys.stats
		avgDuration := time.Duration(0)
		minDuration := internal.minDuration
		if internal.ticks > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.ticks)
		} else {
			minDuration = 0
		}

		stats.Systems[i] = SystemStats{
			Name:          internal.name,
			Invocations:   internal.invocations,
			LastMatched:   internal.lastMatched,
			Ticks:         internal.ticks,
			MinDuration:   minDuration,
			MaxDuration:   internal.maxDuration,
			AvgDuration:   avgDuration,
			LastDuration:  internal.lastDuration,
			TotalDuration: internal.totalDuration,
		}
		stats.TotalInvocations += internal.invocations
	}

	return stats
}

// Run calls RunSystems every interval until the context is cancelled.
// Cancellation is only observed between ticks. Under AbortOnError the first
// failing tick stops the loop and its error is returned; under ContinueOnError
// tick errors are logged and the loop keeps going.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.RunSystems(); err != nil {
				if r.errorPolicy == AbortOnError {
					return err
				}
				r.logger.Error("tick failed", zap.Uint64("tick", r.tick), zap.Error(err))
			}
		}
	}
}
