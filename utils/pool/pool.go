// Package pool wraps sync.Pool with a typed API and metrics on allocation.
package pool

import (
	"sync"

	"github.com/linchenxuan/eosemu/metrics"
)

// Pool is a typed sync.Pool counting the objects it had to allocate.
type Pool[T any] struct {
	name string
	pool sync.Pool
}

// NewPool creates an instrumented pool. name labels the allocation counter
// and newFunc builds an item when the pool is empty.
func NewPool[T any](name string, newFunc func() T) *Pool[T] {
	p := &Pool[T]{name: name}
	p.pool.New = func() any {
		metrics.IncrCounterWithDimGroup(metrics.NamePoolCreateTotal, metrics.GroupEmu, 1, metrics.Dimension{
			metrics.DimPoolName: name,
		})
		return newFunc()
	}
	return p
}

// Name returns the metrics label of the pool.
func (p *Pool[T]) Name() string { return p.name }

// Get returns a pooled item or a new one.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put hands x back for reuse.
func (p *Pool[T]) Put(x T) {
	p.pool.Put(x)
}
