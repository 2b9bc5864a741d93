package ntp

import "sync"

// statCell is a synchronized cell guarding one server's stat record.
// Per-entry locking lets writers for different servers proceed without
// contending with each other; only two goroutines touching the same
// server (e.g. a sync query and a probe query racing) ever block on the
// same mutex.
type statCell struct {
	mu    sync.Mutex
	value ServerStat
}

func newStatCell(value ServerStat) *statCell {
	return &statCell{value: value}
}

// Get returns a copy of the cell's current value.
func (c *statCell) Get() ServerStat {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value
}

// Update applies fn to the cell's current value under the lock and stores
// the result, returning it.
func (c *statCell) Update(fn func(ServerStat) ServerStat) ServerStat {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = fn(c.value)
	return c.value
}
