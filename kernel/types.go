package kernel

import (
	"context"

	"github.com/joeycumines/go-notekernel/repl"
)

type (
	// MessageID is an opaque identifier supplied by the caller. The kernel
	// never generates, reuses, or interprets it; it is echoed verbatim in
	// the Response for every accepted Execute request.
	MessageID uint32

	// Request is the tagged variant the Terminal accepts: either an
	// ExecuteRequest or an InterruptRequest. The unexported method keeps
	// the variant closed to this package, matching the spec's "Request
	// (tagged variant)" data model without needing a Kind enum.
	Request interface {
		isRequest()
	}

	// ExecuteRequest asks the kernel to run code through the REPL adapter
	// and stream its output to Sink. Sink must be a freshly constructed
	// repl.Sink; the kernel writes to it and closes it once the request
	// resolves.
	ExecuteRequest struct {
		ID   MessageID
		Code string
		Sink *repl.Sink
	}

	// InterruptRequest raises both cancellation flags: it cancels the
	// sigint token (aborting any in-flight execute) and triggers the
	// cancellation watcher to drain every request still queued.
	InterruptRequest struct{}

	// admittedRequest is what Terminal.Send actually puts on requestCh for
	// an ExecuteRequest: the permit is already acquired by the time it is
	// constructed, so ingress never needs (and must never perform) its own
	// acquire call. release is sem.release wrapped in a sync.Once.
	admittedRequest struct {
		req     ExecuteRequest
		release func()
	}

	// Outcome labels how an accepted Execute request resolved.
	Outcome int

	// Response reports the terminal Outcome of exactly one accepted
	// Execute request, carrying its original ID.
	Response struct {
		ID      MessageID
		Outcome Outcome
	}

	// workItem is the internal unit of work ingress hands the dispatcher.
	// Its lifetime equals the admission permit's: releasePermit is called
	// exactly once, whichever path (execute or drain) consumes the item.
	workItem struct {
		id            MessageID
		code          string
		sink          *repl.Sink
		cancel        <-chan struct{}
		cancelFunc    context.CancelFunc
		releasePermit func()
	}
)

const (
	// Success indicates the REPL completed the request normally.
	Success Outcome = iota
	// Failed indicates the REPL reported an execution failure.
	Failed
	// Cancelled indicates the request was interrupted, or drained without
	// ever reaching the REPL, due to a queue-wide cancellation.
	Cancelled
)

func (ExecuteRequest) isRequest()   {}
func (InterruptRequest) isRequest() {}
func (admittedRequest) isRequest()  {}

// String renders an Outcome for logging and test failure messages.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "Success"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Outcome(?)"
	}
}
