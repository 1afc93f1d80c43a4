package vsdx

import (
	"strconv"
	"sync"
)

// IDAllocator hands out shape IDs for a single page. IDs only grow, every
// allocated ID is greater than any ID observed or allocated before.
type IDAllocator struct {
	mu  sync.Mutex
	max int
}

// Observe makes sure future allocations are above id.
func (a *IDAllocator) Observe(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id > a.max {
		a.max = id
	}
}

// ObserveString is Observe for attribute values, non numeric IDs are ignored.
func (a *IDAllocator) ObserveString(id string) {
	if n, err := strconv.Atoi(id); err == nil {
		a.Observe(n)
	}
}

// Next allocates new ID.
func (a *IDAllocator) Next() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.max++
	return a.max
}

// Max returns the largest ID seen so far.
func (a *IDAllocator) Max() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.max
}
