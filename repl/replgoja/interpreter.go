// Package replgoja implements repl.Process with an in-process JavaScript
// interpreter (github.com/dop251/goja), grounded on the construction and
// error-wrapping style of goja-eventloop.Adapter: a small struct wrapping a
// *goja.Runtime, a constructor validating its inputs up front, and panics
// from within Goja callbacks translated back into Go errors.
//
// Unlike replproc, there is no child process and no line protocol: code runs
// in the same OS process, console.log/console.error are bound directly to
// the submission's repl.Sink, and cancellation uses goja.Runtime.Interrupt,
// which aborts a running script at its next bytecode-dispatch checkpoint.
package replgoja

import (
	"context"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-notekernel/repl"
)

// interruptedSentinel is passed to (*goja.Runtime).Interrupt so the resulting
// *goja.InterruptedError carries a value we can recognize in Send, rather
// than a free-form string another caller of Interrupt might also use.
type interruptedSentinel struct{}

// Process implements repl.Process by evaluating code against a single,
// long-lived *goja.Runtime. The kernel's SerialAdapter hands it one Message
// at a time, but after a cancellation it does not wait for the abandoned
// Send to return, so a new Send can arrive while the previous one is still
// finishing. The mutex guards the running flag, and Send rejects such an
// overlapping call with an error instead of touching the Runtime from two
// goroutines at once.
type Process struct {
	vm *goja.Runtime

	mu        sync.Mutex
	running   bool
	interrupt bool
}

// New constructs a Process around a fresh goja.Runtime, with console.log and
// console.error bound to write to whatever repl.Sink the in-flight Send call
// names.
func New() *Process {
	p := &Process{vm: goja.New()}
	console := p.vm.NewObject()
	_ = console.Set("log", p.consoleLog)
	_ = console.Set("error", p.consoleLog)
	_ = p.vm.Set("console", console)
	return p
}

func (p *Process) consoleLog(call goja.FunctionCall) goja.Value {
	sink, _ := p.vm.GlobalObject().Get("__notekernelSink").Export().(*repl.Sink)
	if sink == nil {
		return goja.Undefined()
	}
	for i, arg := range call.Arguments {
		if i > 0 {
			_, _ = sink.Write([]byte(" "))
		}
		_, _ = sink.Write([]byte(arg.String()))
	}
	_, _ = sink.Write([]byte("\n"))
	return goja.Undefined()
}

// Send implements repl.Process. It runs code on the Runtime synchronously,
// in a goroutine so ctx cancellation can be observed concurrently: on
// cancellation it calls Runtime.Interrupt, which causes the in-flight
// RunString to return a *goja.InterruptedError at its next checkpoint. Send
// still waits for that goroutine to actually return before completing, since
// goja provides no way to abandon a call to RunString safely (the Runtime
// must not be touched by two goroutines at once).
func (p *Process) Send(ctx context.Context, code string, sink *repl.Sink) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("replgoja: Send called concurrently")
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	_ = p.vm.Set("__notekernelSink", sink)
	defer func() { _ = p.vm.Set("__notekernelSink", goja.Undefined()) }()

	type result struct {
		val goja.Value
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- result{err: fmt.Errorf("replgoja: panic: %v", r)}
			}
		}()
		val, err := p.vm.RunString(code)
		resultCh <- result{val: val, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			if _, ok := res.err.(*goja.InterruptedError); ok {
				return ctx.Err()
			}
			_, _ = sink.Write([]byte(res.err.Error()))
			return fmt.Errorf("replgoja: %w: %v", repl.ErrFailed, res.err)
		}
		if res.val != nil && !goja.IsUndefined(res.val) {
			_, _ = sink.Write([]byte(res.val.String()))
		}
		return nil

	case <-ctx.Done():
		p.vm.Interrupt(interruptedSentinel{})
		<-resultCh // RunString must finish before the Runtime can be reused.
		return ctx.Err()
	}
}

// Close implements repl.Process. The Runtime owns no external resources;
// Close only guards against any still-executing script by interrupting it.
func (p *Process) Close() error {
	p.vm.Interrupt(interruptedSentinel{})
	return nil
}
