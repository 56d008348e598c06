package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockReporter keeps a copy of every sample it sees.
type MockReporter struct {
	mu      sync.Mutex
	records []Record
}

func (mr *MockReporter) Report(r Record) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.records = append(mr.records, *r.Clone())
}

func (mr *MockReporter) Records() []Record {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return append([]Record(nil), mr.records...)
}

func withMockReporter(t *testing.T) *MockReporter {
	t.Helper()
	mr := &MockReporter{}
	SetMetricsReporters([]Reporter{mr})
	t.Cleanup(func() { SetMetricsReporters(nil) })
	return mr
}

func TestCounter(t *testing.T) {
	mr := withMockReporter(t)

	IncrCounterWithGroup("test_counter", "test_group", 10)
	IncrCounterWithDimGroup("test_counter", "test_group", 5, Dimension{DimIface: "auth"})

	records := mr.Records()
	require.Len(t, records, 2)
	assert.Equal(t, Value(10), records[0].Value())
	assert.Equal(t, "test_counter", records[0].Metrics().Name())
	assert.Equal(t, "test_group", records[0].Metrics().Group())
	assert.Equal(t, Policy_Sum, records[0].Metrics().Policy())
	assert.Nil(t, records[0].Dimensions())
	assert.Equal(t, map[string]string{DimIface: "auth"}, records[1].Dimensions())

	assert.Same(t, getCounter("test_counter", "test_group"), getCounter("test_counter", "test_group"))
}

func TestGauge(t *testing.T) {
	mr := withMockReporter(t)

	UpdateGaugeWithGroup(NamePendingResults, GroupEmu, 3)
	UpdateGaugeWithDimGroup(NamePendingResults, GroupEmu, 7, Dimension{DimIface: "ecom"})

	records := mr.Records()
	require.Len(t, records, 2)
	assert.Equal(t, Policy_Set, records[0].Metrics().Policy())
	assert.Equal(t, Value(3), records[0].Value())
	assert.Equal(t, Value(7), records[1].Value())
}

func TestStopwatch(t *testing.T) {
	mr := withMockReporter(t)

	RecordDurationWithGroup("test_sw", "test_group", 1500*time.Microsecond)
	d := RecordStopwatchWithGroup("test_sw", "test_group", time.Now().Add(-time.Millisecond))
	assert.GreaterOrEqual(t, d, time.Millisecond)

	records := mr.Records()
	require.Len(t, records, 2)
	assert.Equal(t, Policy_Stopwatch, records[0].Metrics().Policy())
	assert.InDelta(t, 1.5, float64(records[0].Value()), 1e-9)
	v, cnt := records[0].RawData()
	assert.InDelta(t, 1.5, float64(v), 1e-9)
	assert.Equal(t, 1, cnt)
}

func TestReporterRemove(t *testing.T) {
	a, b := &MockReporter{}, &MockReporter{}
	SetMetricsReporters(nil)
	t.Cleanup(func() { SetMetricsReporters(nil) })

	AddReporter(a)
	AddReporter(b)
	IncrCounterWithGroup("test_remove", "test_group", 1)
	RemoveReporter(a)
	IncrCounterWithGroup("test_remove", "test_group", 1)

	assert.Len(t, a.Records(), 1)
	assert.Len(t, b.Records(), 2)
}

func TestConcurrentFamilyAccess(t *testing.T) {
	withMockReporter(t)

	var wg sync.WaitGroup
	seen := make([]Counter, 32)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = getCounter("test_concurrent", "test_group")
			seen[i].Incr(1)
		}(i)
	}
	wg.Wait()
	for _, c := range seen {
		assert.Same(t, seen[0], c)
	}
}
