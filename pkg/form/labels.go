package form

import "sync"

// LabelAllocator hands out segment label ids.
type LabelAllocator interface {
	Next() int
}

// Counter is a monotonic LabelAllocator. Ids are never reused, even after
// the segment that held one is removed or the form is reset.
type Counter struct {
	mu   sync.Mutex
	last int
}

// NewCounter returns a counter whose first id is 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the next id.
func (c *Counter) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	return c.last
}

// Last returns the most recently issued id, or 0.
func (c *Counter) Last() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
