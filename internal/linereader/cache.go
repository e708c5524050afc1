package linereader

import "sync/atomic"

// The reader cache keeps a few cleaned states so repeated line-read
// sessions reuse their scratch buffers instead of allocating 256KiB
// each time. Each slot is a compare-and-swap cell: a publisher stores
// only into an empty slot, a consumer only takes a non-empty one, so a
// state never has two owners.
const cacheSlots = 4

var cache [cacheSlots]atomic.Pointer[Reader]

// takeCached removes and returns a cached state, or nil.
func takeCached() *Reader {
	for i := range cache {
		if r := cache[i].Load(); r != nil && cache[i].CompareAndSwap(r, nil) {
			return r
		}
	}
	return nil
}

// Close releases the reader without caching it.
func (r *Reader) Close() {
	r.src = nil
	r.codec = nil
	r.buf = nil
}

// CloseOrCache cleans the reader and offers it to the cache; when every
// slot is occupied the state is simply dropped.
func (r *Reader) CloseOrCache() {
	r.src = nil
	r.codec = nil
	r.scratch.Reset()
	r.start = 0
	r.end = 0
	r.linesRead = 0
	r.wide = false
	r.sawEOF = false
	r.terminated = false
	for i := range cache {
		if cache[i].CompareAndSwap(nil, r) {
			return
		}
	}
}

// CleanupCache drops every cached state, releasing their buffers.
func CleanupCache() {
	for i := range cache {
		cache[i].Store(nil)
	}
}
