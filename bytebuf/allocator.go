package bytebuf

import "sync"

// Allocator produces Buffers with a declared starting capacity. It is
// the sole external collaborator biobridge.Shim depends on for memory:
// the shim never allocates raw byte slices itself, only through this
// interface, so the host controls pooling strategy end to end.
type Allocator interface {
	// Allocate returns a Buffer whose backing array has at least the
	// requested capacity and zero readable bytes.
	Allocate(capacity int) Buffer
}

// HeapAllocator allocates a fresh backing array on every call. It is the
// simplest conforming Allocator and the one tests default to.
type HeapAllocator struct{}

// Allocate implements Allocator.
func (HeapAllocator) Allocate(capacity int) Buffer {
	return newBuffer(capacity)
}

// PoolAllocator recycles backing arrays across allocations via a
// sync.Pool, amortizing allocation cost for the common case of
// same-sized, short-lived outbound buffers. Arrays larger than
// MaxPooledCapacity are not returned to the pool to avoid pinning a
// single oversized burst's memory indefinitely.
type PoolAllocator struct {
	// MaxPooledCapacity bounds how large a returned buffer's backing
	// array may be before it is dropped instead of pooled. Zero means
	// unbounded.
	MaxPooledCapacity int

	pool sync.Pool
}

// Allocate implements Allocator. It draws a backing array from the pool
// when one of sufficient capacity is available, otherwise allocates a
// new one.
func (a *PoolAllocator) Allocate(capacity int) Buffer {
	if v, ok := a.pool.Get().([]byte); ok && cap(v) >= capacity {
		return Buffer{store: &storage{data: v[:0], refCount: 1}}
	}
	return newBuffer(capacity)
}

// Put returns a Buffer's backing array to the pool for reuse. Callers
// that extract a Buffer from a Shim and are done with it may call this
// instead of letting the array become unreachable garbage.
func (a *PoolAllocator) Put(b Buffer) {
	if b.store == nil || b.IsShared() {
		return
	}
	if a.MaxPooledCapacity > 0 && cap(b.store.data) > a.MaxPooledCapacity {
		return
	}
	a.pool.Put(b.store.data[:0])
}
