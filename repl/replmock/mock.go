// Package replmock implements the mock REPL fixture used by the kernel's own
// test suite, matching the substring-matched behaviour the spec defines as
// the reference fixture for deterministic tests.
package replmock

import (
	"context"
	"strings"
	"time"

	"github.com/joeycumines/go-notekernel/repl"
)

// ExpensiveDelay is the amount of time Process.Send sleeps between writing
// "partial..." and "...rest" for code containing "expensive". It is a var,
// not a const, so tests can override it.
var ExpensiveDelay = 5 * time.Second

// Process implements repl.Process with fixed, pattern-matched behaviour:
//
//   - code contains "buggy": writes "error" to the sink, returns an error
//     (the SerialAdapter maps this to repl.ErrFailed).
//   - code contains "expensive": writes "partial...", sleeps ExpensiveDelay,
//     then writes "...rest" and returns nil. If ctx is cancelled during the
//     sleep it returns ctx.Err() at once, without writing "...rest"; under
//     the kernel's cancellation race the interrupt branch resolves first and
//     that result is discarded.
//   - otherwise: writes code verbatim to the sink, returns nil.
type Process struct{}

// New returns a ready-to-use mock Process. There is no construction-time
// failure mode; New never returns an error, and a struct literal (Process{})
// works identically.
func New() *Process { return &Process{} }

// Send implements repl.Process.
func (Process) Send(ctx context.Context, code string, sink *repl.Sink) error {
	switch {
	case strings.Contains(code, "buggy"):
		_, _ = sink.Write([]byte("error"))
		return errBuggy

	case strings.Contains(code, "expensive"):
		_, _ = sink.Write([]byte("partial..."))
		select {
		case <-time.After(ExpensiveDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		_, _ = sink.Write([]byte("...rest"))
		return nil

	default:
		_, _ = sink.Write([]byte(code))
		return nil
	}
}

// Close implements repl.Process. The mock owns no resources.
func (Process) Close() error { return nil }

var errBuggy = mockError("mock repl: code contained \"buggy\"")

type mockError string

func (e mockError) Error() string { return string(e) }
