package repl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_WriteThenClose_DeliversAllThenCloses(t *testing.T) {
	s := NewSink()

	n, err := s.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = s.Write([]byte("world"))
	require.NoError(t, err)

	require.NoError(t, s.Close())

	var got []byte
	for chunk := range s.Out() {
		got = append(got, chunk...)
	}
	assert.Equal(t, "hello world", string(got))
}

func TestSink_WriteAfterClose_ReturnsErrSinkClosed(t *testing.T) {
	s := NewSink()
	require.NoError(t, s.Close())
	<-s.Out() // drain the close signal

	_, err := s.Write([]byte("too late"))
	assert.ErrorIs(t, err, ErrSinkClosed)
}

func TestSink_WriteEmpty_IsNoop(t *testing.T) {
	s := NewSink()
	n, err := s.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, s.Close())
	_, ok := <-s.Out()
	assert.False(t, ok)
}

func TestSink_ConsumerCanLagBehindProducer(t *testing.T) {
	s := NewSink()
	for i := 0; i < 100; i++ {
		_, err := s.Write([]byte{byte(i)})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())
	time.Sleep(50 * time.Millisecond)

	var count int
	for range s.Out() {
		count++
	}
	assert.Equal(t, 100, count)
}
