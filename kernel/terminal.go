package kernel

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Terminal is the kernel's only public surface: a caller-held pair of
// endpoints for submitting Requests and receiving Responses, plus an
// observability handle and a graceful-or-forced Close, mirroring the
// two-tier Shutdown/Close contract of microbatch.Batcher.
type Terminal struct {
	requestCh  chan Request
	responseCh chan Response
	admission  *Admission
	sem        *admissionSemaphore

	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
	group     *errgroup.Group
	finished  chan struct{}
	waitErr   error
}

// Send submits req for processing. An ExecuteRequest suspends under
// backpressure — it acquires an admission permit itself, synchronously,
// before req ever reaches the internal request channel, so a caller
// blocks exactly when capacity work items are outstanding (spec.md:48,
// spec.md:57), not one step later whenever ingress happens to get
// scheduled. InterruptRequest bypasses admission entirely (spec.md:55)
// and is sent directly. Send fails only if ctx is cancelled or the
// kernel has been closed.
func (t *Terminal) Send(ctx context.Context, req Request) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	if er, ok := req.(ExecuteRequest); ok {
		return t.sendExecute(ctx, er)
	}
	select {
	case t.requestCh <- req:
		return nil
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendExecute acquires an admission permit for req before enqueuing it,
// releasing the permit again if req never actually makes it onto
// requestCh (ctx cancelled, or the kernel closed, in the gap between
// acquiring and enqueuing).
func (t *Terminal) sendExecute(ctx context.Context, req ExecuteRequest) error {
	if err := t.sem.acquire(ctx, t.done); err != nil {
		return err
	}
	admitted := admittedRequest{req: req, release: releaseOnce(t.sem)}
	select {
	case t.requestCh <- admitted:
		return nil
	case <-t.done:
		admitted.release()
		return ErrClosed
	case <-ctx.Done():
		admitted.release()
		return ctx.Err()
	}
}

// Recv suspends until a Response is available, ctx is cancelled, or the
// kernel has been fully torn down, in which case ok is false.
func (t *Terminal) Recv(ctx context.Context) (resp Response, ok bool) {
	select {
	case resp, ok = <-t.responseCh:
		return resp, ok
	case <-ctx.Done():
		return Response{}, false
	}
}

// Admission returns a read-only view of the kernel's admission semaphore,
// for observability (spec §6).
func (t *Terminal) Admission() *Admission { return t.admission }

// Close stops accepting new Requests and waits for every supervised task
// to exit, propagating cancellation to any in-flight REPL execution. If
// ctx is cancelled before that finishes, Close forces an immediate
// shutdown by cancelling the kernel's internal context, then still waits
// for the tasks to actually exit before returning ctx.Err(). Close is
// idempotent and safe to call more than once.
func (t *Terminal) Close(ctx context.Context) error {
	t.closeOnce.Do(func() { close(t.done) })

	select {
	case <-ctx.Done():
		t.cancel()
		<-t.finished
		return ctx.Err()
	case <-t.finished:
		return t.waitErr
	}
}
