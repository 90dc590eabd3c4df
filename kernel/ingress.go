package kernel

import (
	"context"
	"sync"

	"github.com/joeycumines/logiface"
)

// ingress consumes Requests serially, holding the long-lived sigint token
// pair (recreated after every Interrupt so each epoch gets a fresh,
// independently-cancellable context per spec §9's repeated-interrupt open
// question). It is the sole site that raises either cancellation flag from
// outside the dispatcher.
//
// ingress never acquires an admission permit itself: Terminal.Send does
// that synchronously, before an ExecuteRequest ever reaches requestCh, so
// that backpressure is visible to the caller of Send rather than absorbed
// by requestCh's own buffering (see admittedRequest).
type ingress[E logiface.Event] struct {
	requestCh chan Request
	done      <-chan struct{}
	workCh    chan<- *workItem
	raiseCh   *raiser
	logger    *logiface.Logger[E]
}

func (g *ingress[E]) run(ctx context.Context) error {
	defer close(g.workCh)

	sigintCtx, sigintCancel := context.WithCancel(ctx)
	defer sigintCancel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-g.done:
			return nil

		case req := <-g.requestCh:
			switch r := req.(type) {
			case admittedRequest:
				itemCtx, itemCancel := context.WithCancel(sigintCtx)
				item := &workItem{
					id:            r.req.ID,
					code:          r.req.Code,
					sink:          r.req.Sink,
					cancel:        itemCtx.Done(),
					cancelFunc:    itemCancel,
					releasePermit: r.release,
				}
				if g.logger != nil {
					g.logger.Debug().Log(`kernel: execute request admitted`)
				}
				select {
				case g.workCh <- item:
				case <-ctx.Done():
					item.cancelFunc()
					item.releasePermit()
					return nil
				case <-g.done:
					item.cancelFunc()
					item.releasePermit()
					return nil
				}

			case InterruptRequest:
				if g.logger != nil {
					g.logger.Info().Log(`kernel: interrupt observed`)
				}
				sigintCancel()
				g.raiseCh.raise()
				// Start a fresh epoch: per-request tokens minted from here
				// on are children of a new, independently-cancellable
				// sigint context, so a second, later Interrupt does not
				// retroactively do anything to requests admitted after
				// this point beyond what a subsequent Interrupt raises.
				sigintCtx, sigintCancel = context.WithCancel(ctx)
			}
		}
	}
}

// releaseOnce wraps sem.release in a sync.Once so double-release (e.g. a
// work item both hitting the drain path and the shutdown path) can never
// over-credit the semaphore.
func releaseOnce(sem *admissionSemaphore) func() {
	var once sync.Once
	return func() { once.Do(sem.release) }
}
