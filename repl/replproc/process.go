// Package replproc implements repl.Process by driving a real,
// separately-spawned child process over a pseudo-terminal, grounded on the
// PTY-backed process management in prompt/termtest.Console: os/exec plus
// creack/pty, a mutex-guarded output buffer, and a single persistent reader
// goroutine.
//
// replproc makes no assumption about the child's language. It assumes only
// a minimal cooperative line protocol: after the child finishes evaluating a
// unit of code it is expected to print a line of the form
// "\x00notekernel-done:<ok|err>\n" to stdout (most REPLs can be made to do
// this with a thin wrapper script around the real interpreter). This is a
// replproc-level convention, not part of the core kernel contract, which
// deliberately defines no wire format.
package replproc

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"github.com/joeycumines/go-notekernel/repl"
)

const (
	// donePrefix marks the start of a completion line. A NUL prefix keeps
	// collisions with ordinary program output astronomically unlikely.
	donePrefix = "\x00notekernel-done:"
	doneOK     = donePrefix + "ok\n"
	doneErr    = donePrefix + "err\n"
)

type (
	// Config configures a Process.
	Config struct {
		// Command is the child process executable, e.g. "python3", "node".
		Command string
		// Args are passed to Command.
		Args []string
		// Dir, if set, is the child's working directory.
		Dir string
		// Env, if non-nil, is appended to os.Environ() for the child.
		Env []string
	}

	// completion is posted by the reader goroutine once it sees a done
	// marker for the currently-active submission.
	completion struct {
		failed bool
		err    error
	}

	// Process drives a single REPL child process over a PTY. The kernel's
	// SerialAdapter submits one Message at a time (a cancelled Send returns
	// as soon as its ctx is done), and a single persistent reader goroutine
	// owns the PTY's read side for the Process's whole lifetime, even across
	// cancelled submissions.
	Process struct {
		cmd *exec.Cmd
		ptm *os.File

		mu       sync.Mutex
		closed   bool
		sink     *repl.Sink  // destination for the in-flight submission's output, if any
		doneCh   chan struct{}
		complete chan completion
	}
)

// New spawns the child process described by cfg and returns a ready Process.
// The returned error is a construction-time error per the kernel spec (a
// failure here must not start any kernel tasks).
func New(ctx context.Context, cfg Config) (*Process, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("replproc: empty command")
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = append(os.Environ(), cfg.Env...)

	ptm, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("replproc: start %q: %w", cfg.Command, err)
	}

	p := &Process{
		cmd:      cmd,
		ptm:      ptm,
		doneCh:   make(chan struct{}),
		complete: make(chan completion, 1),
	}
	go p.readLoop()
	return p, nil
}

// Send implements repl.Process: it writes code to the child's stdin and
// blocks until the persistent reader goroutine observes a done marker for
// it, or ctx is cancelled. On cancellation, Send returns immediately without
// detaching the reader goroutine from this submission's sink: any further
// output (and the eventual done marker) the child emits for the abandoned
// submission is still routed there, matching the spec's cooperative (not
// preemptive) cancellation model.
func (p *Process) Send(ctx context.Context, code string, sink *repl.Sink) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("replproc: process closed")
	}
	p.sink = sink
	p.mu.Unlock()

	if _, err := p.ptm.Write([]byte(code + "\n")); err != nil {
		return fmt.Errorf("replproc: write: %w", err)
	}

	select {
	case res := <-p.complete:
		if res.err != nil {
			return res.err
		}
		if res.failed {
			return fmt.Errorf("replproc: %w", repl.ErrFailed)
		}
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-p.doneCh:
		return fmt.Errorf("replproc: process closed")
	}
}

// readLoop owns the PTY's read side for the Process's entire lifetime,
// routing output lines to whichever sink is currently active and posting a
// completion once a done marker line arrives.
func (p *Process) readLoop() {
	r := bufio.NewReader(p.ptm)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if strings.HasPrefix(line, donePrefix) {
				// the PTY turns the child's "\n" into "\r\n"
				p.postCompletion(completion{failed: strings.TrimRight(line, "\r\n")+"\n" == doneErr})
				continue
			}
			p.mu.Lock()
			sink := p.sink
			p.mu.Unlock()
			if sink != nil {
				_, _ = sink.Write([]byte(line))
			}
		}
		if err != nil {
			p.postCompletion(completion{err: fmt.Errorf("replproc: read: %w", err)})
			return
		}
	}
}

func (p *Process) postCompletion(c completion) {
	select {
	case p.complete <- c:
	default:
		// no Send currently waiting (e.g. a stray done marker); drop it.
	}
}

// Close kills the child process and releases the PTY. Safe to call more than
// once.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.doneCh)

	var errs []error
	if p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.ptm.Close(); err != nil {
		errs = append(errs, err)
	}
	_ = p.cmd.Wait()

	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("replproc: close: %s", strings.Join(msgs, "; "))
}
