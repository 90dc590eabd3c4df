package kernel

import (
	"context"

	"github.com/joeycumines/logiface"
)

// watcher awaits queue-cancellation triggers and, once per trigger it
// receives (raises that arrive before it wakes are coalesced into one),
// samples the number of currently-admitted WorkItems and publishes that
// count to the dispatcher's single-slot drain-notification channel. An
// interrupt that also resolves the in-flight item as interrupted raises
// twice (ingress, then dispatcher), so one epoch can yield two samples. It
// never touches a WorkItem directly (spec §4.3): the dispatcher alone
// decides what "up to n" means against the work channel it owns.
type watcher[E logiface.Event] struct {
	raiseCh *raiser
	sem     *admissionSemaphore
	drainCh chan<- int
	done    <-chan struct{}
	logger  *logiface.Logger[E]
}

func (w *watcher[E]) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.done:
			return nil

		case <-w.raiseCh.ch:
			n := w.sem.admitted()
			if w.logger != nil {
				w.logger.Debug().Log(`kernel: queue cancellation observed`)
			}
			w.publish(ctx, n)
		}
	}
}

// publish delivers n on the single-slot drain channel, discarding a stale
// unread value if one is already sitting there. Per spec §9's open
// question on rapid repeated Interrupts, the dispatcher treats this count
// as "up to this many", never authoritative beyond that, so overwriting a
// stale value here is safe: the dispatcher's own running drainRemaining
// counter (merged via max, not sum) is what prevents double-counting.
func (w *watcher[E]) publish(ctx context.Context, n int) {
	for {
		select {
		case w.drainCh <- n:
			return
		case <-ctx.Done():
			return
		default:
			select {
			case <-w.drainCh:
			case w.drainCh <- n:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}
