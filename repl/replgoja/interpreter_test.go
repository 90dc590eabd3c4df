package replgoja

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-notekernel/repl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, sink *repl.Sink) string {
	t.Helper()
	var out []byte
	for chunk := range sink.Out() {
		out = append(out, chunk...)
	}
	return string(out)
}

func TestProcess_Send_EvaluatesExpression(t *testing.T) {
	p := New()
	sink := repl.NewSink()
	err := p.Send(context.Background(), "1 + 1", sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Equal(t, "2", drain(t, sink))
}

func TestProcess_Send_ConsoleLogWritesToSink(t *testing.T) {
	p := New()
	sink := repl.NewSink()
	err := p.Send(context.Background(), `console.log("hello", "world")`, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Equal(t, "hello world\n", drain(t, sink))
}

func TestProcess_Send_ThrowingScriptReturnsErrFailed(t *testing.T) {
	p := New()
	sink := repl.NewSink()
	err := p.Send(context.Background(), `throw new Error("boom")`, sink)
	require.ErrorIs(t, err, repl.ErrFailed)
	require.NoError(t, sink.Close())
}

func TestProcess_Send_InfiniteLoopIsInterrupted(t *testing.T) {
	p := New()
	sink := repl.NewSink()
	ctx, cancel := context.WithCancel(context.Background())

	resultCh := make(chan error, 1)
	go func() { resultCh <- p.Send(ctx, "while (true) {}", sink) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-resultCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("infinite loop was not interrupted")
	}

	require.NoError(t, sink.Close())

	// The Runtime must be usable again for a subsequent Send.
	sink2 := repl.NewSink()
	require.NoError(t, p.Send(context.Background(), "1", sink2))
	require.NoError(t, sink2.Close())
	assert.Equal(t, "1", drain(t, sink2))
}
