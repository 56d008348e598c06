// Package metrics records emulator counters, gauges and stopwatches and fans
// them out to pluggable reporters.
package metrics

// Policy is the aggregation policy of a metric over a reporting window.
type Policy int

const (
	Policy_None      Policy = iota // no aggregation preference
	Policy_Set                     // last value wins
	Policy_Sum                     // values are summed
	Policy_Stopwatch               // durations averaged over the sample count
)

// Value is a metric sample.
type Value float64

// Dimension labels a metric sample.
type Dimension map[string]string

const (
	KB = 1024.0
	MB = 1024.0 * 1024.0
)

// GroupEmu is the group of every emulator metric.
const GroupEmu = "eosemu"

// Metric names.
const (
	// NameCallbacksFiredTotal counts completion and notification callbacks delivered.
	// dimension:iface
	NameCallbacksFiredTotal = "callbacks_fired_total"

	// NameCallbacksFreedTotal counts FreeCallback invocations.
	// dimension:iface
	NameCallbacksFreedTotal = "callbacks_freed_total"

	// NamePendingResults is the pending queue length after a pump cycle.
	NamePendingResults = "pending_results"

	// NameTickDurationMs is the wall time of one pump cycle.
	NameTickDurationMs = "tick_duration_ms"

	// NameNotificationsActive is the number of live notification subscriptions.
	NameNotificationsActive = "notifications_active"

	// NameTransferBytesTotal counts bytes moved by file transfers.
	// dimension:iface,direction
	NameTransferBytesTotal = "transfer_bytes_total"

	// NameNetworkMsgTotal counts loopback messages delivered to listeners.
	// dimension:channel
	NameNetworkMsgTotal = "network_msg_total"

	// NameNetworkMsgDeferredTotal counts messages held back by the receive limiter.
	NameNetworkMsgDeferredTotal = "network_msg_deferred_total"

	// NamePoolCreateTotal counts objects allocated because a pool was empty.
	// dimension:poolname
	NamePoolCreateTotal = "pool_create_total"
)

// Dimension keys.
const (
	DimIface     = "iface"
	DimDirection = "direction"
	DimChannel   = "channel"
	DimPoolName  = "poolname"
)
