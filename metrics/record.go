package metrics

import (
	"fmt"
	"maps"
)

// Record is one metric sample with its labels.
type Record struct {
	metrics    Metrics
	value      Value
	cnt        int
	dimensions Dimension
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	cp := *r
	cp.dimensions = maps.Clone(r.dimensions)
	return &cp
}

// Metrics returns the metric the sample belongs to.
func (r *Record) Metrics() Metrics {
	return r.metrics
}

// Value returns the sample. Stopwatch samples are averaged over their count.
func (r *Record) Value() Value {
	if r.metrics.Policy() == Policy_Stopwatch && r.cnt != 0 {
		return r.value / Value(r.cnt)
	}
	return r.value
}

// RawData returns the unprocessed value and sample count.
func (r *Record) RawData() (Value, int) {
	return r.value, r.cnt
}

// Dimensions returns the labels of the sample.
func (r *Record) Dimensions() map[string]string {
	return r.dimensions
}

// Merge folds other into r according to the metric policy.
// Both records must describe the same metric and labels.
func (r *Record) Merge(other Record) error {
	if r.metrics.Name() != other.metrics.Name() {
		return fmt.Errorf("metrics name(%s,%s) not equal", r.metrics.Name(), other.metrics.Name())
	}
	if r.metrics.Group() != other.metrics.Group() {
		return fmt.Errorf("metrics group(%s,%s) not equal", r.metrics.Group(), other.metrics.Group())
	}
	if !maps.Equal(r.dimensions, other.dimensions) {
		return fmt.Errorf("metrics(%s) dimensions not equal", r.metrics.Name())
	}

	switch r.metrics.Policy() {
	case Policy_Set:
		r.value = other.value
	case Policy_Sum:
		r.value += other.value
	case Policy_Stopwatch:
		r.value += other.value
		r.cnt += other.cnt
	default:
		return fmt.Errorf("metrics(%s) policy %d cannot merge", r.metrics.Name(), r.metrics.Policy())
	}
	return nil
}
