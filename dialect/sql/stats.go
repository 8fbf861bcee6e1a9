// Query statistics and slow-query detection for dialect drivers.
package sql

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/quarry-orm/quarry/dialect"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements, in
	// nanoseconds.
	TotalDuration atomic.Int64
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of statement errors.
	Errors atomic.Int64
}

// Snapshot returns a point-in-time copy of the statistics.
func (s *QueryStats) Snapshot() StatsSnapshot {
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

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps any dialect.Driver with statement counting. Besides
// production metrics, it is the query-count instrumentation used to verify
// the eager-load resolver's 1+K query bound.
type StatsDriver struct {
	dialect.Driver
	stats         QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow-statement threshold. Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.slowThreshold = d }
}

// WithSlowQueryHook sets a callback invoked for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.slowHook = hook }
}

// WithSlowQueryLog logs slow statements through slog. A convenience
// wrapper around WithSlowQueryHook.
func WithSlowQueryLog() StatsOption {
	return WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
		slog.Warn("slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsDriver wraps a driver with statistics collection.
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, slowThreshold: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns a snapshot of the collected statistics.
func (s *StatsDriver) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// ResetStats resets the collected statistics.
func (s *StatsDriver) ResetStats() {
	s.stats.Reset()
}

// Features forwards the capability descriptor of the wrapped driver.
func (s *StatsDriver) Features() *dialect.Features {
	if fr, ok := s.Driver.(dialect.FeatureReporter); ok {
		return fr.Features()
	}
	return dialect.Detect(s.Dialect(), "")
}

// Query implements the dialect.Query method with counting.
func (s *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	s.stats.TotalQueries.Add(1)
	return s.observe(ctx, query, args, func() error {
		return s.Driver.Query(ctx, query, args, v)
	})
}

// Exec implements the dialect.Exec method with counting.
func (s *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	s.stats.TotalExecs.Add(1)
	return s.observe(ctx, query, args, func() error {
		return s.Driver.Exec(ctx, query, args, v)
	})
}

func (s *StatsDriver) observe(ctx context.Context, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	elapsed := time.Since(start)
	s.stats.TotalDuration.Add(int64(elapsed))
	if err != nil {
		s.stats.Errors.Add(1)
	}
	if elapsed > s.slowThreshold {
		s.stats.SlowQueries.Add(1)
		if s.slowHook != nil {
			argv, _ := args.([]any)
			s.slowHook(ctx, query, argv, elapsed)
		}
	}
	return err
}

var _ dialect.Driver = (*StatsDriver)(nil)
