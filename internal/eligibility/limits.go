package eligibility

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iamwavecut/pasarbot/internal/errors"
)

const rollingDay = 24 * time.Hour

type (
	giftCounter struct {
		count   int
		resetAt time.Time
	}

	// GiftLimiter caps gifts per member in a rolling day.
	GiftLimiter struct {
		limit    int
		clock    Clock
		mu       sync.Mutex
		counters map[string]*giftCounter
	}
)

func NewGiftLimiter(limit int, clock Clock) *GiftLimiter {
	if clock == nil {
		clock = SystemClock
	}
	return &GiftLimiter{limit: limit, clock: clock, counters: map[string]*giftCounter{}}
}

// Take reserves one gift for member or fails with ErrRateLimited.
func (g *GiftLimiter) Take(member string) error {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.counters[member]
	if !ok || !now.Before(c.resetAt) {
		c = &giftCounter{resetAt: now.Add(rollingDay)}
		g.counters[member] = c
	}
	if c.count >= g.limit {
		return fmt.Errorf("gift limit %d reached until %s: %w", g.limit, c.resetAt.Format(time.RFC3339), errors.ErrRateLimited)
	}
	c.count++
	return nil
}

// Refund gives back a reservation whose gift did not happen.
func (g *GiftLimiter) Refund(member string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.counters[member]; ok && c.count > 0 {
		c.count--
	}
}

func (g *GiftLimiter) Remaining(member string) int {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.counters[member]
	if !ok || !now.Before(c.resetAt) {
		return g.limit
	}
	return g.limit - c.count
}

// DailyReward grants a small top-up to active members running low.
type DailyReward struct {
	below decimal.Decimal
	clock Clock
	mu    sync.Mutex
	last  map[string]time.Time
}

func NewDailyReward(below decimal.Decimal, clock Clock) *DailyReward {
	if clock == nil {
		clock = SystemClock
	}
	return &DailyReward{below: below, clock: clock, last: map[string]time.Time{}}
}

// Claim reports whether member is due the reward now and marks it granted.
func (r *DailyReward) Claim(member string, balance decimal.Decimal) bool {
	if !balance.LessThan(r.below) {
		return false
	}
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.last[member]; ok && now.Sub(last) < rollingDay {
		return false
	}
	r.last[member] = now
	return true
}

// Forget undoes a claim whose credit failed.
func (r *DailyReward) Forget(member string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.last, member)
}
