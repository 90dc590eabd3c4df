package kernel

import (
	"context"

	"github.com/joeycumines/go-notekernel/repl"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
)

// Config models optional kernel configuration, parameterised by the
// logiface.Event implementation of the chosen logging backend (e.g.
// logiface-slog's *Event, or logiface-stumpy's). The zero value (or a nil
// *Config) is a valid configuration with logging disabled, matching the
// nil-able BatcherConfig/ChannelConfig idiom used throughout the rest of
// this module's dependencies.
type Config[E logiface.Event] struct {
	// Logger receives structured events for admission, dispatch, and
	// outcome transitions. A nil Logger (the default) disables logging
	// entirely; no log call ever blocks kernel progress.
	Logger *logiface.Logger[E]
}

// New constructs a kernel around adapter with the given capacity and
// starts its three long-lived tasks (ingress, dispatcher, cancellation
// watcher; adapter runs its own background task, if any), returning
// the caller-facing Terminal. capacity must be >= 1; per spec §6 this is a
// programming error, not a runtime condition, so New panics rather than
// returning an error. adapter must be non-nil for the same reason.
//
// New's type parameter is inferred from config, so callers wiring a
// concrete backend (logiface-slog, logiface-stumpy, ...) name the event
// type only on the Config literal:
// kernel.New(adapter, capacity, &kernel.Config[*islog.Event]{Logger: logger}).
// With a nil config, E must be given explicitly.
func New[E logiface.Event](adapter repl.Adapter, capacity int, config *Config[E]) *Terminal {
	if adapter == nil {
		panic(`kernel: nil adapter`)
	}
	if capacity < 1 {
		panic(ErrInvalidCapacity)
	}

	var logger *logiface.Logger[E]
	if config != nil {
		logger = config.Logger
	}

	sem := newAdmissionSemaphore(capacity)
	raiseCh := newRaiser()

	requestCh := make(chan Request, capacity)
	workCh := make(chan *workItem, capacity)
	responseCh := make(chan Response, 2*capacity)
	drainCh := make(chan int, 1)

	ctx, cancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(ctx)

	done := make(chan struct{})

	ing := &ingress[E]{
		requestCh: requestCh,
		done:      done,
		workCh:    workCh,
		raiseCh:   raiseCh,
		logger:    logger,
	}
	w := &watcher[E]{
		raiseCh: raiseCh,
		sem:     sem,
		drainCh: drainCh,
		done:    done,
		logger:  logger,
	}
	disp := &dispatcher[E]{
		workCh:     workCh,
		responseCh: responseCh,
		drainCh:    drainCh,
		adapter:    adapter,
		raiseCh:    raiseCh,
		logger:     logger,
	}

	g.Go(func() error { return ing.run(gCtx) })
	g.Go(func() error { return w.run(gCtx) })
	g.Go(func() error { return disp.run(gCtx) })

	t := &Terminal{
		requestCh:  requestCh,
		responseCh: responseCh,
		admission:  &Admission{sem: sem},
		sem:        sem,
		done:       done,
		cancel:     cancel,
		group:      g,
		finished:   make(chan struct{}),
	}

	go func() {
		t.waitErr = g.Wait()
		_ = adapter.Close()
		cancel()
		close(t.finished)
	}()

	return t
}
