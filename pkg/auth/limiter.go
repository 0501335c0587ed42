package auth

import (
	"sync"

	"golang.org/x/time/rate"

	"chatserv/pkg/config"
)

// limiterPool keeps one token bucket per caller key ("user:<name>" or
// "ip:<addr>"). Buckets are created on first sight and live for the
// process; a chat roster is small enough that the map never needs
// eviction.
type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg SecConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = config.DefaultRateRPS
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = config.DefaultRateBurst
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}
