package storage

import (
	"github.com/linchenxuan/eosemu/utils/pool"
)

// DefaultChunkBytes is the chunk size used when a request asks for zero.
const DefaultChunkBytes = 64 * 1024

var chunkPool = pool.NewPool("storage_chunk", func() *[]byte {
	b := make([]byte, DefaultChunkBytes)
	return &b
})

func getChunk(n int) *[]byte {
	b := chunkPool.Get()
	if cap(*b) < n {
		*b = make([]byte, n)
	}
	*b = (*b)[:n]
	return b
}

func putChunk(b *[]byte) {
	if b == nil {
		return
	}
	chunkPool.Put(b)
}
