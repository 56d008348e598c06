package metrics

import (
	"sync"
	"time"
)

// Metrics is implemented by every metric type.
type Metrics interface {
	Name() string
	Group() string
	Policy() Policy
}

// family caches metric instances by name.
type family[T Metrics] struct {
	lock  sync.RWMutex
	items map[string]T
	make  func(name, group string) T
}

func newFamily[T Metrics](mk func(name, group string) T) *family[T] {
	return &family[T]{items: map[string]T{}, make: mk}
}

func (f *family[T]) get(name, group string) T {
	f.lock.RLock()
	m, ok := f.items[name]
	f.lock.RUnlock()
	if ok {
		return m
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if m, ok = f.items[name]; ok {
		return m
	}
	m = f.make(name, group)
	f.items[name] = m
	return m
}

var (
	_counters = newFamily(func(name, group string) Counter {
		return &counter{name: name, group: group}
	})
	_gauges = newFamily(func(name, group string) Gauge {
		return &gauge{name: name, group: group}
	})
	_stopwatches = newFamily(func(name, group string) StopWatch {
		return &stopwatch{name: name, group: group}
	})
)

func getCounter(name, group string) Counter     { return _counters.get(name, group) }
func getGauge(name, group string) Gauge         { return _gauges.get(name, group) }
func getStopWatch(name, group string) StopWatch { return _stopwatches.get(name, group) }

// IncrCounterWithGroup adds value to a counter.
func IncrCounterWithGroup(key string, group string, value Value) {
	getCounter(key, group).Incr(value)
}

// IncrCounterWithDimGroup adds value to a labelled counter.
func IncrCounterWithDimGroup(key string, group string, value Value, dimensions Dimension) {
	getCounter(key, group).IncrWithDim(value, dimensions)
}

// UpdateGaugeWithGroup sets a gauge.
func UpdateGaugeWithGroup(key string, group string, value Value) {
	getGauge(key, group).Update(value)
}

// UpdateGaugeWithDimGroup sets a labelled gauge.
func UpdateGaugeWithDimGroup(key string, group string, value Value, dimensions Dimension) {
	getGauge(key, group).UpdateWithDim(value, dimensions)
}

// RecordStopwatchWithGroup records the time elapsed since startTime.
func RecordStopwatchWithGroup(key string, group string, startTime time.Time) time.Duration {
	return getStopWatch(key, group).RecordWithDim(nil, startTime)
}

// RecordDurationWithGroup records an already measured duration.
func RecordDurationWithGroup(key string, group string, d time.Duration) {
	getStopWatch(key, group).RecordDuration(nil, d)
}
