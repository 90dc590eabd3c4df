package repl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcess is a minimal Process for exercising SerialAdapter in
// isolation, independent of replmock or replproc.
type fakeProcess struct {
	send  func(ctx context.Context, code string, sink *Sink) error
	close func() error
}

func (f *fakeProcess) Send(ctx context.Context, code string, sink *Sink) error {
	return f.send(ctx, code, sink)
}

func (f *fakeProcess) Close() error {
	if f.close == nil {
		return nil
	}
	return f.close()
}

func TestNewSerialAdapter_NilProcess(t *testing.T) {
	a, err := NewSerialAdapter(nil, nil)
	assert.Nil(t, a)
	assert.Error(t, err)
}

func TestSerialAdapter_Execute_Success(t *testing.T) {
	proc := &fakeProcess{send: func(ctx context.Context, code string, sink *Sink) error {
		_, _ = sink.Write([]byte(code))
		return nil
	}}
	a, err := NewSerialAdapter(proc, nil)
	require.NoError(t, err)
	defer a.Close()

	sink := NewSink()
	cancel := make(chan struct{})
	err = a.Execute(context.Background(), "1", sink, cancel)
	assert.NoError(t, err)
}

func TestSerialAdapter_Execute_Failed(t *testing.T) {
	sentinel := errors.New("boom")
	proc := &fakeProcess{send: func(ctx context.Context, code string, sink *Sink) error {
		return sentinel
	}}
	a, err := NewSerialAdapter(proc, nil)
	require.NoError(t, err)
	defer a.Close()

	err = a.Execute(context.Background(), "x", NewSink(), make(chan struct{}))
	assert.ErrorIs(t, err, ErrFailed)
}

// TestSerialAdapter_Execute_InterruptDoesNotWaitForSlowProcess guards the
// race-condition fix in handleOne: the cancel branch must resolve
// immediately, without waiting for an abandoned, still-running Send call
// to finish, however long that takes.
func TestSerialAdapter_Execute_InterruptDoesNotWaitForSlowProcess(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	proc := &fakeProcess{send: func(ctx context.Context, code string, sink *Sink) error {
		close(started)
		<-unblock // ignores ctx: only the cancel branch can resolve Execute
		return ctx.Err()
	}}
	a, err := NewSerialAdapter(proc, nil)
	require.NoError(t, err)
	defer a.Close()
	defer close(unblock)

	cancel := make(chan struct{})
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- a.Execute(context.Background(), "expensive", NewSink(), cancel)
	}()

	<-started
	close(cancel)

	select {
	case err := <-resultCh:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("Execute did not return promptly after cancel fired")
	}
}

func TestSerialAdapter_Close_StopsRunLoopAndClosesProcess(t *testing.T) {
	closed := make(chan struct{})
	proc := &fakeProcess{
		send:  func(ctx context.Context, code string, sink *Sink) error { return nil },
		close: func() error { close(closed); return nil },
	}
	a, err := NewSerialAdapter(proc, nil)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	select {
	case <-closed:
	default:
		t.Fatal("expected underlying Process.Close to have been called")
	}

	_, ok := a.NextMessage()
	assert.False(t, ok)
}
