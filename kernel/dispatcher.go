package kernel

import (
	"context"
	"errors"

	"github.com/joeycumines/go-notekernel/repl"
	"github.com/joeycumines/logiface"
)

// dispatcher owns the REPL adapter and is the only task that ever calls it.
// It loops on a biased select with a drain branch and an execute branch;
// the drain branch must win whenever both are ready, which is implemented
// here as a non-blocking pre-check of drainCh ahead of the main select
// (Go's select has no native priority, so this two-phase check is the
// idiomatic way to bias one branch).
type dispatcher[E logiface.Event] struct {
	workCh     <-chan *workItem
	responseCh chan<- Response
	drainCh    <-chan int
	adapter    repl.Adapter
	raiseCh    *raiser
	logger     *logiface.Logger[E]
}

func (d *dispatcher[E]) run(ctx context.Context) error {
	defer close(d.responseCh)

	// drainRemaining and inFlightCredit together track the watcher's
	// admitted-count sample against what the drain branch can actually
	// consume from workCh. The sample includes an item the dispatcher is
	// actively executing (it still holds its permit), but that item can
	// never be pulled from workCh a second time — it resolves through the
	// execute branch instead. inFlightCredit banks "one fewer to drain"
	// for whichever order the drain count and that resolution happen to
	// arrive in, so a single in-flight interruption is never double
	// counted against a subsequently-published (or already-published)
	// drain count. See DESIGN.md for the full account of this.
	var drainRemaining, inFlightCredit int

	apply := func(n int) {
		n -= inFlightCredit
		inFlightCredit = 0
		if n < 0 {
			n = 0
		}
		drainRemaining = max(drainRemaining, n)
	}

	for {
		// Phase 1: non-blocking bias check. If a drain count is waiting,
		// consume it before considering any workItem, regardless of
		// whether one is also ready.
		select {
		case n := <-d.drainCh:
			apply(n)
			continue
		default:
		}

		if drainRemaining > 0 {
			select {
			case n := <-d.drainCh:
				apply(n)

			case item, ok := <-d.workCh:
				if !ok {
					return nil
				}
				drainRemaining--
				d.drainItem(item)

			case <-ctx.Done():
				return nil
			}
			continue
		}

		select {
		case n := <-d.drainCh:
			apply(n)

		case item, ok := <-d.workCh:
			if !ok {
				return nil
			}
			if d.executeItem(ctx, item) {
				if drainRemaining > 0 {
					drainRemaining--
				} else {
					inFlightCredit++
				}
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// drainItem discards item without dispatching it to the REPL, per the
// drain branch's contract: it is always reported Cancelled, with no
// further side effect on the queue (the cancellation that caused the
// drain has already been raised by whoever triggered this epoch).
func (d *dispatcher[E]) drainItem(item *workItem) {
	item.cancelFunc()
	item.releasePermit()
	_ = item.sink.Close()
	if d.logger != nil {
		d.logger.Debug().Log(`kernel: work item drained`)
	}
	d.responseCh <- Response{ID: item.id, Outcome: Cancelled}
}

// executeItem forwards item to the REPL adapter and maps its outcome to a
// Response, raising queue-cancellation on Failed or Interrupted per the
// failure policy table in spec §4.6. It reports whether the outcome was an
// interruption, so run can reconcile its drain-count bookkeeping.
func (d *dispatcher[E]) executeItem(ctx context.Context, item *workItem) (interrupted bool) {
	err := d.adapter.Execute(ctx, item.code, item.sink, item.cancel)
	item.cancelFunc()
	item.releasePermit()
	_ = item.sink.Close()

	switch {
	case err == nil:
		if d.logger != nil {
			d.logger.Info().Log(`kernel: execute succeeded`)
		}
		d.responseCh <- Response{ID: item.id, Outcome: Success}

	case errors.Is(err, repl.ErrInterrupted):
		if d.logger != nil {
			d.logger.Info().Log(`kernel: execute interrupted`)
		}
		d.responseCh <- Response{ID: item.id, Outcome: Cancelled}
		d.raiseCh.raise()
		interrupted = true

	default:
		if d.logger != nil {
			d.logger.Notice().Err(err).Log(`kernel: execute failed`)
		}
		d.responseCh <- Response{ID: item.id, Outcome: Failed}
		d.raiseCh.raise()
	}

	settle()
	return interrupted
}
