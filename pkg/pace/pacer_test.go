package pace

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFetchDelayWithinRange(t *testing.T) {
	p := New(60*time.Second, 90*time.Second, 0).WithSeed(42)

	for i := 0; i < 200; i++ {
		d := p.FetchDelay()
		if d < 60*time.Second || d > 90*time.Second {
			t.Fatalf("Delay %v outside [60s, 90s]", d)
		}
	}
}

func TestFetchDelayFixed(t *testing.T) {
	p := New(5*time.Second, time.Second, 0)
	if d := p.FetchDelay(); d != 5*time.Second {
		t.Errorf("Expected max below min to collapse to min, got %v", d)
	}
}

func TestSleepsUseInjectedFunc(t *testing.T) {
	var slept []time.Duration
	p := New(time.Second, time.Second, 2*time.Minute).WithSleep(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	if err := p.AfterFetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Cooldown(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Minute {
		t.Errorf("Unexpected sleeps: %v", slept)
	}
}

func TestCooldownHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(0, 0, time.Hour)
	start := time.Now()
	err := p.Cooldown(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Cooldown did not return promptly after cancel")
	}
}

func TestNoDelay(t *testing.T) {
	p := NoDelay()
	if p.FetchDelay() != 0 || p.CooldownDuration() != 0 {
		t.Error("NoDelay pacer should never wait")
	}
}
