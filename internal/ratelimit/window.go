package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window is the rolling span the request budget applies to
const window = time.Minute

// Window is a sliding-window admission gate shared across all workers. It is
// a blocking, cooperative throttle rather than a fair queue: workers
// self-serialize through the shared lock, so admission order approximates
// request order but is not strictly FIFO under contention.
type Window struct {
	mu         sync.Mutex
	budget     int
	admissions []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWindow creates an admission gate allowing at most requestsPerMinute
// admissions within any trailing 60-second window.
func NewWindow(requestsPerMinute int) *Window {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	return &Window{
		budget: requestsPerMinute,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Admit blocks until the caller may issue a request, then records the
// admission. Returns early only when ctx is cancelled.
func (w *Window) Admit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	if len(w.admissions) >= w.budget {
		// Wait until the oldest admission ages out of the window.
		wait := w.admissions[0].Add(window).Sub(now)
		if wait > 0 {
			if err := w.sleep(ctx, wait); err != nil {
				return err
			}
		}
		w.prune(w.now())
	}

	w.admissions = append(w.admissions, w.now())
	return nil
}

// prune drops admissions that have aged out of the trailing window
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(w.admissions) && !w.admissions[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.admissions = append(w.admissions[:0], w.admissions[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
