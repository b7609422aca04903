package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type (
	throttle struct {
		limit rate.Limit
		burst int

		mu      sync.Mutex
		clients map[string]*client
		now     func() time.Time
	}

	client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
)

const (
	maxTrackedClients = 4096
	clientIdle        = 10 * time.Minute
)

func newThrottle(limit rate.Limit, burst int) *throttle {
	return &throttle{
		limit:   limit,
		burst:   burst,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

func (t *throttle) allow(r *http.Request) bool {
	return t.limiter(clientAddr(r)).Allow()
}

func (t *throttle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if c, ok := t.clients[key]; ok {
		c.lastSeen = now
		return c.limiter
	}
	if len(t.clients) >= maxTrackedClients {
		t.evictIdle(now)
	}
	c := &client{limiter: rate.NewLimiter(t.limit, t.burst), lastSeen: now}
	t.clients[key] = c
	return c.limiter
}

func (t *throttle) evictIdle(now time.Time) {
	for k, c := range t.clients {
		if now.Sub(c.lastSeen) > clientIdle {
			delete(t.clients, k)
		}
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
