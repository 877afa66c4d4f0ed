// Package pace spaces out portal actions: a random delay after each fetch
// and a fixed cool-down between sessions.
package pace

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"wgharvest/pkg/retry"
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer holds the delay policy for one run
type Pacer struct {
	fetchMin time.Duration
	fetchMax time.Duration
	cooldown time.Duration

	sleep SleepFunc
	mu    sync.Mutex
	rng   *rand.Rand
}

// New creates a pacer. A max below min is treated as equal to min.
func New(fetchMin, fetchMax, cooldown time.Duration) *Pacer {
	if fetchMax < fetchMin {
		fetchMax = fetchMin
	}
	return &Pacer{
		fetchMin: fetchMin,
		fetchMax: fetchMax,
		cooldown: cooldown,
		sleep:    retry.Wait,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NoDelay returns a pacer that never sleeps
func NoDelay() *Pacer {
	return New(0, 0, 0)
}

// WithSleep replaces the sleep function, for tests
func (p *Pacer) WithSleep(sleep SleepFunc) *Pacer {
	p.sleep = sleep
	return p
}

// WithSeed makes the jitter sequence reproducible
func (p *Pacer) WithSeed(seed int64) *Pacer {
	p.mu.Lock()
	p.rng = rand.New(rand.NewSource(seed))
	p.mu.Unlock()
	return p
}

// FetchDelay picks a delay uniformly from [min, max]
func (p *Pacer) FetchDelay() time.Duration {
	span := p.fetchMax - p.fetchMin
	if span <= 0 {
		return p.fetchMin
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchMin + time.Duration(p.rng.Int63n(int64(span)+1))
}

// AfterFetch sleeps for a fresh FetchDelay
func (p *Pacer) AfterFetch(ctx context.Context) error {
	return p.sleep(ctx, p.FetchDelay())
}

// Cooldown sleeps for the inter-session cool-down
func (p *Pacer) Cooldown(ctx context.Context) error {
	return p.sleep(ctx, p.cooldown)
}

// CooldownDuration returns the configured cool-down
func (p *Pacer) CooldownDuration() time.Duration {
	return p.cooldown
}
