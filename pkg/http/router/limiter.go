package router

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		clients: make(map[string]*client),
		limit:   limit,
		burst:   burst,
	}
}

func (c *clientLimiters) get(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	cl, ok := c.clients[host]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[host] = cl
	}
	cl.lastSeen = now

	// evict idle clients once the table grows large
	if len(c.clients) > 4096 {
		for h, other := range c.clients {
			if now.Sub(other.lastSeen) > 3*time.Minute {
				delete(c.clients, h)
			}
		}
	}
	return cl.limiter
}
