package core

import (
	"sync"

	"github.com/armon/circbuf"
)

// BufferPool manages a pool of reusable circular buffers so repeated runs do
// not reallocate their output capture buffers.
type BufferPool struct {
	pool    sync.Pool
	size    int64
	maxSize int64
	minSize int64
}

// NewBufferPool creates a new buffer pool with configurable sizes
func NewBufferPool(minSize, defaultSize, maxSize int64) *BufferPool {
	bp := &BufferPool{
		size:    defaultSize,
		maxSize: maxSize,
		minSize: minSize,
	}

	bp.pool = sync.Pool{
		New: func() interface{} {
			buf, _ := circbuf.NewBuffer(bp.size)
			return buf
		},
	}

	return bp
}

// Get retrieves a buffer from the pool or creates a new one
func (bp *BufferPool) Get() (*circbuf.Buffer, error) {
	buf, ok := bp.pool.Get().(*circbuf.Buffer)
	if !ok || buf == nil {
		return circbuf.NewBuffer(bp.size)
	}
	return buf, nil
}

// GetSized retrieves a buffer with a specific size requirement
func (bp *BufferPool) GetSized(size int64) (*circbuf.Buffer, error) {
	// If requested size is within our normal range, use the pool
	if size >= bp.minSize && size <= bp.size {
		return bp.Get()
	}

	// Cap at maxSize to prevent excessive memory usage
	if size > bp.maxSize {
		size = bp.maxSize
	}

	return circbuf.NewBuffer(size)
}

// Put returns a buffer to the pool for reuse
func (bp *BufferPool) Put(buf *circbuf.Buffer) {
	if buf == nil {
		return
	}

	buf.Reset()

	// Only return to pool if it's the standard size.
	// Custom-sized buffers are let go for GC.
	if buf.Size() == bp.size {
		bp.pool.Put(buf)
	}
}

// DefaultBufferPool provides buffers for task executions.
// Min: 1KB for tiny outputs
// Default: 256KB for typical outputs
// Max: 10MB for large test suite outputs (matching maxStreamSize)
var DefaultBufferPool = NewBufferPool(1024, 256*1024, maxStreamSize)
