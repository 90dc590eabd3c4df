package kernel

import (
	"context"
	"sync/atomic"
)

// Admission is a read-only view of the kernel's admission semaphore,
// returned alongside the Terminal for observability (spec §6: "a factory
// function ... returns a Terminal plus, for observability, the admission
// semaphore"). It exposes no acquire/release operation; only Capacity and
// Available.
type Admission struct {
	sem *admissionSemaphore
}

// Capacity returns the kernel's fixed admission capacity.
func (a *Admission) Capacity() int { return a.sem.capacity }

// Available returns the number of admission permits not currently held by
// an in-flight or queued Execute request. A single atomic load, which is
// the reason the kernel uses a bespoke counting semaphore instead of
// golang.org/x/sync/semaphore.Weighted: that type does not expose its
// remaining count, and the cancellation watcher needs to sample
// capacity-available with a single read (spec §4.3, §9).
func (a *Admission) Available() int { return int(atomic.LoadInt64(&a.sem.available)) }

// admissionSemaphore is a counting semaphore backed by a buffered channel
// of tokens, with the available count additionally tracked by an atomic
// counter so it can be read without acquiring or blocking. acquire/release
// keep both in lockstep.
type admissionSemaphore struct {
	capacity  int
	tokens    chan struct{}
	available int64 // atomic; mirrors len(tokens) without needing a read of the channel
}

func newAdmissionSemaphore(capacity int) *admissionSemaphore {
	tokens := make(chan struct{}, capacity)
	for range capacity {
		tokens <- struct{}{}
	}
	return &admissionSemaphore{
		capacity:  capacity,
		tokens:    tokens,
		available: int64(capacity),
	}
}

// acquire blocks until a permit is available, ctx is cancelled, or done is
// closed (the latter lets callers abort on a separate, non-context
// shutdown signal, e.g. Terminal.Close's graceful path). The distinct
// return values let Terminal.Send propagate the right error to its
// caller: ctx.Err() for a cancelled ctx, ErrClosed for a closed kernel.
func (s *admissionSemaphore) acquire(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-s.tokens:
		atomic.AddInt64(&s.available, -1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return ErrClosed
	}
}

// release returns a permit to the pool. Safe to call from any goroutine;
// must be called exactly once per successful acquire.
func (s *admissionSemaphore) release() {
	atomic.AddInt64(&s.available, 1)
	s.tokens <- struct{}{}
}

// admitted returns the number of permits currently held, i.e. the number
// of Execute requests that have been admitted by Send but whose WorkItem
// has not yet resolved or been dropped.
func (s *admissionSemaphore) admitted() int {
	return s.capacity - int(atomic.LoadInt64(&s.available))
}
