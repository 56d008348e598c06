package metrics

import "sync"

var (
	_reporterLock sync.RWMutex
	_Reporters    []Reporter
)

// Reporter receives every recorded sample.
type Reporter interface {
	Report(r Record)
}

// SetMetricsReporters replaces the reporter list.
func SetMetricsReporters(reports []Reporter) {
	_reporterLock.Lock()
	defer _reporterLock.Unlock()
	_Reporters = append([]Reporter(nil), reports...)
}

// AddReporter appends a reporter.
func AddReporter(r Reporter) {
	_reporterLock.Lock()
	defer _reporterLock.Unlock()
	_Reporters = append(_Reporters, r)
}

// RemoveReporter drops a previously added reporter.
func RemoveReporter(r Reporter) {
	_reporterLock.Lock()
	defer _reporterLock.Unlock()
	for i, x := range _Reporters {
		if x == r {
			_Reporters = append(_Reporters[:i:i], _Reporters[i+1:]...)
			return
		}
	}
}

func report(r Record) {
	_reporterLock.RLock()
	defer _reporterLock.RUnlock()
	for _, reporter := range _Reporters {
		reporter.Report(r)
	}
}
