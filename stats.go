package funkyorm

import (
	"sync/atomic"
	"time"
)

// QueryStats holds query execution statistics for one Config (shared by
// every Query built with that Config), adapted from the teacher's
// dialect/sql/stats.go.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// StatsSnapshot is a point-in-time snapshot of QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// AvgQueryDuration returns the average query duration across all recorded
// queries and execs.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	n := s.TotalQueries + s.TotalExecs
	if n == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(n)
}

// RecordQuery records one query execution against cfg's slow-query
// threshold.
func (s *QueryStats) RecordQuery(d time.Duration, slowThresholdMillis int64, err error) {
	s.TotalQueries.Add(1)
	s.TotalDuration.Add(int64(d))
	if d.Milliseconds() >= slowThresholdMillis {
		s.SlowQueries.Add(1)
	}
	if err != nil {
		s.Errors.Add(1)
	}
}

// RecordExec records one non-query execution.
func (s *QueryStats) RecordExec(d time.Duration, slowThresholdMillis int64, err error) {
	s.TotalExecs.Add(1)
	s.TotalDuration.Add(int64(d))
	if d.Milliseconds() >= slowThresholdMillis {
		s.SlowQueries.Add(1)
	}
	if err != nil {
		s.Errors.Add(1)
	}
}
