package reconcile

import "sync"

// lastPlan holds the most recent submitted plan for the status endpoint.
type lastPlan struct {
	mu   sync.RWMutex
	plan *Plan
}

func (c *lastPlan) store(p *Plan) {
	c.mu.Lock()
	c.plan = p
	c.mu.Unlock()
}

func (c *lastPlan) load() *Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plan
}
