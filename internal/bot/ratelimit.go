package bot

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
	now      func() time.Time
}

func NewRateLimiter(maxBurst int, ratePerMinute float64) *RateLimiter {
	if maxBurst <= 0 {
		maxBurst = 10
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &RateLimiter{
		tokens:   float64(maxBurst),
		max:      float64(maxBurst),
		rate:     ratePerMinute / 60.0,
		lastTime: time.Now(),
		now:      time.Now,
	}
}

// refill must be called with mu held.
func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens += now.Sub(rl.lastTime).Seconds() * rl.rate
	if rl.tokens > rl.max {
		rl.tokens = rl.max
	}
	rl.lastTime = now
}

// Allow takes a token if one is available and never blocks.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

// ChatLimiter keeps one RateLimiter per chat.
type ChatLimiter struct {
	mu            sync.Mutex
	limiters      map[int64]*RateLimiter
	burst         int
	ratePerMinute float64
}

func NewChatLimiter(burst int, ratePerMinute float64) *ChatLimiter {
	return &ChatLimiter{
		limiters:      make(map[int64]*RateLimiter),
		burst:         burst,
		ratePerMinute: ratePerMinute,
	}
}

// Allow reports whether chatID may run one more throttled command now.
func (c *ChatLimiter) Allow(chatID int64) bool {
	c.mu.Lock()
	rl, ok := c.limiters[chatID]
	if !ok {
		rl = NewRateLimiter(c.burst, c.ratePerMinute)
		c.limiters[chatID] = rl
	}
	c.mu.Unlock()
	return rl.Allow()
}
