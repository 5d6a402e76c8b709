package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock drives the window deterministically: sleeping advances the clock.
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestWindow(budget int) (*Window, *fakeClock) {
	clock := newFakeClock()
	w := NewWindow(budget)
	w.now = clock.now
	w.sleep = clock.sleep
	return w, clock
}

func TestWindow_AdmitsUpToBudgetWithoutWaiting(t *testing.T) {
	w, clock := newTestWindow(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := w.Admit(ctx); err != nil {
			t.Fatalf("admit %d failed: %v", i, err)
		}
	}
	if len(clock.slept) != 0 {
		t.Errorf("expected no waits within budget, got %v", clock.slept)
	}
}

func TestWindow_BlocksUntilOldestAgesOut(t *testing.T) {
	w, clock := newTestWindow(2)
	ctx := context.Background()

	_ = w.Admit(ctx)
	_ = w.Admit(ctx)

	clock.advance(10 * time.Second)
	if err := w.Admit(ctx); err != nil {
		t.Fatalf("admit failed: %v", err)
	}

	if len(clock.slept) != 1 {
		t.Fatalf("expected exactly one wait, got %v", clock.slept)
	}
	// Oldest admission was 10s ago, so it ages out after another 50s.
	if clock.slept[0] != 50*time.Second {
		t.Errorf("expected 50s wait, got %v", clock.slept[0])
	}
}

func TestWindow_NeverExceedsBudgetInTrailingWindow(t *testing.T) {
	const budget = 5
	w, clock := newTestWindow(budget)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if err := w.Admit(ctx); err != nil {
			t.Fatalf("admit %d failed: %v", i, err)
		}

		cutoff := clock.now().Add(-window)
		inWindow := 0
		for _, ts := range w.admissions {
			if ts.After(cutoff) {
				inWindow++
			}
		}
		if inWindow > budget {
			t.Fatalf("admission %d: %d admissions in trailing window, budget %d", i, inWindow, budget)
		}
	}
}

func TestWindow_ConcurrentAdmissions(t *testing.T) {
	// Real clock, generous budget: all admissions must pass without waiting
	// and the recorded count must match.
	w := NewWindow(1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Admit(ctx); err != nil {
				t.Errorf("admit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.admissions) != 50 {
		t.Errorf("expected 50 recorded admissions, got %d", len(w.admissions))
	}
}

func TestWindow_ContextCancellation(t *testing.T) {
	w := NewWindow(1)

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Admit(ctx); err != nil {
		t.Fatalf("first admit failed: %v", err)
	}

	cancel()
	if err := w.Admit(ctx); err == nil {
		t.Errorf("expected context error while blocked on full window")
	}
}
