package forces

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// BufferPool recycles zeroed per-worker force buffers of a fixed length.
type BufferPool struct {
	pool sync.Pool
	size int
}

func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]r3.Vec, size)
			},
		},
	}
}

func (p *BufferPool) Get() []r3.Vec {
	return p.pool.Get().([]r3.Vec)
}

// Put zeroes b and returns it to the pool. Buffers of the wrong size are dropped.
func (p *BufferPool) Put(b []r3.Vec) {
	if len(b) == p.size {
		for i := range b {
			b[i] = r3.Vec{}
		}
		p.pool.Put(b)
	}
}

// Size returns the buffer length served by the pool.
func (p *BufferPool) Size() int { return p.size }
