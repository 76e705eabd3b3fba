// Package scratch implements the size-keyed byte-arena pool spec.md's
// DESIGN NOTES call for: small, short-lived row/tile buffers used inside
// the iterator and buffer read/write paths are reused across passes
// instead of allocated and garbage-collected on every tile step.
//
// Grounded on the teacher's internal/tile/rgbapool.go, which pools
// *image.RGBA buffers keyed by (width, height) via a sync.Map of
// sync.Pool; generalized here from "image pool keyed by dimensions" to
// "byte-slice pool keyed by length", and from always-pool to
// pool-below-AllocaThreshold (internal/tile/memlimit.go's RAM-budget
// sizing is the same "where's the line between cheap reuse and letting
// the allocator do its job" judgment call, applied here to a per-request
// size rather than a process-wide memory ceiling).
package scratch

import "sync"

var pools sync.Map // map[int]*sync.Pool, keyed by exact slice length

// Get returns a zeroed byte slice of exactly n bytes. Requests at or above
// AllocaThreshold are allocated directly: large buffers are infrequent
// enough, and bulky enough, that pooling them mostly just pins memory
// rather than saving allocations.
func Get(n int) []byte {
	if n >= AllocaThreshold {
		return make([]byte, n)
	}
	if p, ok := pools.Load(n); ok {
		if v := p.(*sync.Pool).Get(); v != nil {
			buf := v.([]byte)
			clear(buf)
			return buf
		}
	}
	return make([]byte, n)
}

// Put returns buf to the pool for its length, for reuse by a later Get of
// the same size. Buffers at or above AllocaThreshold, and nil buffers, are
// silently dropped.
func Put(buf []byte) {
	n := len(buf)
	if buf == nil || n >= AllocaThreshold {
		return
	}
	p, _ := pools.LoadOrStore(n, &sync.Pool{})
	p.(*sync.Pool).Put(buf)
}
