package repl

import (
	"context"
	"fmt"

	"github.com/joeycumines/logiface"
)

type (
	// Message is a single execution request, handed from the dispatcher to
	// an Adapter's inbound queue. The Reply channel is a one-shot: Handle
	// must send exactly one value (nil, ErrFailed, or ErrInterrupted) before
	// returning.
	Message struct {
		Code   string
		Sink   *Sink
		Cancel <-chan struct{}
		Reply  chan<- error
	}

	// Process is the thing a concrete REPL backend implements: sending code
	// to whatever is actually interpreting it (a child process, an
	// in-process interpreter, ...), streaming output to sink, and resolving
	// once execution finishes or ctx is cancelled.
	//
	// Send must return ErrFailed (or an error wrapping it) to indicate the
	// REPL itself reported a failure executing code, as opposed to a Go-level
	// plumbing error. Any other non-nil error is treated as a construction
	// or plumbing-level failure, which the SerialAdapter maps to ErrFailed
	// too (the dispatcher only distinguishes success/failure/interrupted).
	Process interface {
		// Send executes code, streaming output to sink, and blocks until the
		// REPL finishes or ctx is cancelled. If ctx is cancelled before the
		// REPL finishes, Send should make a best effort to abort the
		// in-flight execution (cooperative, not preemptive) and return
		// ctx.Err().
		Send(ctx context.Context, code string, sink *Sink) error

		// Close releases the Process's resources (kills a child process,
		// stops an in-process interpreter, ...). Close is called at most
		// once.
		Close() error
	}

	// Adapter is the dispatcher-facing single operation described by the
	// spec: execute code, race it against per-request cancellation, return
	// exactly one outcome. SerialAdapter is the only implementation; it
	// exists as an interface so the dispatcher never depends on a concrete
	// Process.
	Adapter interface {
		// Execute sends code for execution, blocking until it resolves.
		// cancel fires (closes) to request cooperative interruption.
		Execute(ctx context.Context, code string, sink *Sink, cancel <-chan struct{}) error

		// Close shuts down the adapter's background task and underlying
		// Process. Close is safe to call more than once.
		Close() error
	}

	// SerialAdapter drives a single Process, handling one Message at a time
	// via its own background goroutine (Handle / NextMessage), exactly as
	// described by the kernel spec's REPL adapter contract: the REPL is
	// fundamentally a serial resource. Handle waits for Process.Send to
	// return unless the per-request cancel fires first; in that case the
	// abandoned Send keeps running in its own goroutine (with its ctx
	// cancelled) and may still be finishing when the next Message's Send
	// starts.
	SerialAdapter struct {
		proc    Process
		logger  *logiface.Logger[logiface.Event]
		inbound chan *Message
		done    chan struct{}
		closed  chan struct{}
	}
)

// NewSerialAdapter constructs an Adapter around proc, and starts its
// background message-processing loop. logger may be nil (logging disabled).
func NewSerialAdapter(proc Process, logger *logiface.Logger[logiface.Event]) (*SerialAdapter, error) {
	if proc == nil {
		return nil, fmt.Errorf("repl: nil Process")
	}
	a := &SerialAdapter{
		proc:    proc,
		logger:  logger,
		inbound: make(chan *Message),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
	go a.run()
	return a, nil
}

// Execute implements Adapter.
func (a *SerialAdapter) Execute(ctx context.Context, code string, sink *Sink, cancel <-chan struct{}) error {
	reply := make(chan error, 1)
	msg := &Message{Code: code, Sink: sink, Cancel: cancel, Reply: reply}

	select {
	case a.inbound <- msg:
	case <-a.done:
		return ErrAdapterClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-a.done:
		return ErrAdapterClosed
	}
}

// NextMessage returns the next inbound Message, or ok=false once the adapter
// has been closed and no further messages will arrive. It is only meant to
// be called from the adapter's own run loop (or a test standing in for it).
func (a *SerialAdapter) NextMessage() (msg *Message, ok bool) {
	select {
	case msg = <-a.inbound:
		return msg, true
	case <-a.done:
		return nil, false
	}
}

// Handle processes a single Message to completion, racing the Process
// against the per-request cancel signal, and populates msg.Reply exactly
// once. It is exported so tests (and alternative run loops) can drive one
// message at a time deterministically.
func (a *SerialAdapter) Handle(msg *Message) {
	msg.Reply <- a.handleOne(msg)
}

func (a *SerialAdapter) handleOne(msg *Message) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- a.proc.Send(ctx, msg.Code, msg.Sink)
	}()

	select {
	case err := <-resultCh:
		if err != nil {
			if a.logger != nil {
				a.logger.Debug().Err(err).Log(`repl: execution failed`)
			}
			return fmt.Errorf("%w: %v", ErrFailed, err)
		}
		return nil

	case <-msg.Cancel:
		// cancel is a cooperative, best-effort request: ctx cancellation lets
		// a well-behaved Process abort early, but Handle does not wait for
		// resultCh. Whichever of the REPL or the cancel signal resolves
		// first wins; the abandoned Send goroutine's result (if any) is
		// discarded once it eventually completes, resultCh being buffered.
		cancel()
		if a.logger != nil {
			a.logger.Debug().Log(`repl: execution interrupted`)
		}
		return ErrInterrupted
	}
}

func (a *SerialAdapter) run() {
	defer close(a.closed)
	for {
		msg, ok := a.NextMessage()
		if !ok {
			return
		}
		a.Handle(msg)
	}
}

// Close implements Adapter. It stops accepting new messages, waits for the
// run loop to exit, then closes the underlying Process. Later calls only
// wait for the run loop and return nil.
func (a *SerialAdapter) Close() error {
	select {
	case <-a.done:
		<-a.closed
		return nil
	default:
		close(a.done)
	}
	<-a.closed
	return a.proc.Close()
}
