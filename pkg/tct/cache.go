package tct

import "sync"

// cachedHash is a write-once, thread-safe memo of a node's hash. It mirrors
// the teacher's lazy-hash pattern in spirit: the value is computed from
// scratch at most once, and concurrent readers never observe a torn value.
//
// Unlike a plain sync.Once wrapping a closure, setIfEmpty lets the first
// caller's computed value win even under a race between two callers that
// both found the cache empty - both compute, only one publishes, both get
// back the same (now-canonical) answer.
type cachedHash struct {
	mu    sync.Mutex
	value Hash
	done  bool
}

// get returns the cached value and true, or the zero Hash and false if
// nothing has been published yet.
func (c *cachedHash) get() (Hash, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.done
}

// setIfEmpty computes and publishes a value if none is cached yet, then
// returns the (now-guaranteed-present) cached value. compute must be a pure
// function of the node's children, since it may be invoked by more than one
// concurrent caller before the first publish lands.
func (c *cachedHash) setIfEmpty(compute func() Hash) Hash {
	c.mu.Lock()
	if c.done {
		v := c.value
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v := compute()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.value = v
		c.done = true
	}
	return c.value
}

// clear discards any cached value. Only safe to call on a node whose
// children may still change (the live frontier spine); complete nodes are
// immutable and must never be cleared once published.
func (c *cachedHash) clear() {
	c.mu.Lock()
	c.done = false
	c.mu.Unlock()
}
