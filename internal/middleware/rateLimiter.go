package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/filebook/internal/config"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type IPRateLimiter struct {
	ips       map[string]*visitor
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	idleTTL   time.Duration
}

func NewDefaultIPRateLimiter() *IPRateLimiter {
	return NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{ips: make(map[string]*visitor), rateLimit: r, burstRate: b, idleTTL: 10 * time.Minute}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, exists := i.ips[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.ips[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Sweep forgets addresses idle for longer than the TTL.
func (i *IPRateLimiter) Sweep() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	removed := 0
	for ip, v := range i.ips {
		if time.Since(v.lastSeen) > i.idleTTL {
			delete(i.ips, ip)
			removed++
		}
	}
	return removed
}

//TODO: move the buckets to redis once more than one api instance runs behind the load balancer

// RunSweeper sweeps every interval until ctx is done.
func (i *IPRateLimiter) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			i.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
