//go:build unix

package replproc

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-notekernel/repl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoShim is a minimal shell REPL stand-in: for every line of input it
// echoes the line back, then emits the done marker replproc waits for.
const echoShim = `while IFS= read -r line; do
  printf '%s\n' "$line"
  printf '\x00notekernel-done:ok\n'
done`

func newShimProcess(t *testing.T) *Process {
	t.Helper()
	ctx := context.Background()
	p, err := New(ctx, Config{Command: "/bin/sh", Args: []string{"-c", echoShim}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func drain(t *testing.T, sink *repl.Sink) string {
	t.Helper()
	var out []byte
	for chunk := range sink.Out() {
		out = append(out, chunk...)
	}
	return string(out)
}

func TestNew_EmptyCommand(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestProcess_Send_RoundTrip(t *testing.T) {
	p := newShimProcess(t)
	sink := repl.NewSink()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.Send(ctx, "hello", sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	// The pty echoes the submitted line in addition to the shim's own
	// output, so assert on content rather than an exact transcript.
	assert.Contains(t, drain(t, sink), "hello\r\n")
}

func TestProcess_Send_SequentialCallsReuseReader(t *testing.T) {
	p := newShimProcess(t)

	for _, code := range []string{"one", "two", "three"} {
		sink := repl.NewSink()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := p.Send(ctx, code, sink)
		cancel()
		require.NoError(t, err)
		require.NoError(t, sink.Close())
		assert.Contains(t, drain(t, sink), code+"\r\n")
	}
}

func TestProcess_Send_CancelledContextReturnsPromptly(t *testing.T) {
	// a shim that never answers, so Send can only return via ctx
	// cancellation.
	ctx := context.Background()
	p, err := New(ctx, Config{Command: "/bin/sh", Args: []string{"-c", "cat >/dev/null"}})
	require.NoError(t, err)
	defer p.Close()

	sendCtx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan error, 1)
	go func() { resultCh <- p.Send(sendCtx, "never answered", repl.NewSink()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-resultCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Send did not return after context cancellation")
	}
}

func TestProcess_Close_IsIdempotent(t *testing.T) {
	p := newShimProcess(t)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
