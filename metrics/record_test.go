package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	counter := getCounter("test_record_counter", "test_group")
	record := Record{
		metrics:    counter,
		value:      42.5,
		cnt:        3,
		dimensions: Dimension{"key1": "value1", "key2": "value2"},
	}

	t.Run("Clone", func(t *testing.T) {
		clone := record.Clone()
		assert.Equal(t, record.metrics, clone.metrics)
		assert.Equal(t, record.value, clone.value)
		assert.Equal(t, record.cnt, clone.cnt)

		clone.dimensions["key1"] = "modified"
		assert.Equal(t, "value1", record.dimensions["key1"])
	})

	t.Run("Getters", func(t *testing.T) {
		assert.Equal(t, counter, record.Metrics())
		assert.Equal(t, Value(42.5), record.Value())
		v, cnt := record.RawData()
		assert.Equal(t, Value(42.5), v)
		assert.Equal(t, 3, cnt)
	})

	t.Run("StopwatchAverage", func(t *testing.T) {
		sw := Record{metrics: getStopWatch("test_record_sw", "test_group"), value: 9, cnt: 3}
		assert.Equal(t, Value(3), sw.Value())
	})
}

func TestRecordMerge(t *testing.T) {
	t.Run("Sum", func(t *testing.T) {
		c := getCounter("test_merge_sum", "test_group")
		a := Record{metrics: c, value: 2}
		require.NoError(t, a.Merge(Record{metrics: c, value: 3}))
		assert.Equal(t, Value(5), a.Value())
	})

	t.Run("Set", func(t *testing.T) {
		g := getGauge("test_merge_set", "test_group")
		a := Record{metrics: g, value: 2}
		require.NoError(t, a.Merge(Record{metrics: g, value: 8}))
		assert.Equal(t, Value(8), a.Value())
	})

	t.Run("Stopwatch", func(t *testing.T) {
		s := getStopWatch("test_merge_sw", "test_group")
		a := Record{metrics: s, value: 2, cnt: 1}
		require.NoError(t, a.Merge(Record{metrics: s, value: 4, cnt: 1}))
		assert.Equal(t, Value(3), a.Value())
	})

	t.Run("Mismatch", func(t *testing.T) {
		a := Record{metrics: getCounter("test_merge_a", "test_group")}
		assert.Error(t, a.Merge(Record{metrics: getCounter("test_merge_b", "test_group")}))

		b := Record{metrics: getCounter("test_merge_a", "test_group"), dimensions: Dimension{"k": "1"}}
		assert.Error(t, b.Merge(Record{metrics: getCounter("test_merge_a", "test_group"), dimensions: Dimension{"k": "2"}}))
	})
}
