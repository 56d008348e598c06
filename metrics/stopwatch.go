package metrics

import "time"

// StopWatch records elapsed durations in milliseconds.
type StopWatch interface {
	Metrics
	RecordWithDim(dimensions Dimension, startTime time.Time) time.Duration
	RecordDuration(dimensions Dimension, d time.Duration)
}

type stopwatch struct {
	name  string
	group string
}

func (s *stopwatch) Name() string   { return s.name }
func (s *stopwatch) Group() string  { return s.group }
func (s *stopwatch) Policy() Policy { return Policy_Stopwatch }

// RecordWithDim records the time elapsed since startTime and returns it.
func (s *stopwatch) RecordWithDim(dimensions Dimension, startTime time.Time) time.Duration {
	d := time.Since(startTime)
	s.RecordDuration(dimensions, d)
	return d
}

// RecordDuration records an already measured duration.
func (s *stopwatch) RecordDuration(dimensions Dimension, d time.Duration) {
	report(Record{
		metrics:    s,
		value:      Value(float64(d.Microseconds()) / 1000),
		cnt:        1,
		dimensions: dimensions,
	})
}
