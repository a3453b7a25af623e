package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameStreamOrder(t *testing.T) {
	s := NewFrameStream()
	s.Push([]byte("a"))
	s.Push([]byte("b"))
	s.Push([]byte("c"))
	assert.Equal(t, 3, s.Len())

	for _, want := range []string{"a", "b", "c"} {
		frame, ok := s.Next()
		require.True(t, ok)
		assert.Equal(t, want, string(frame))
	}
}

func TestFrameStreamCloseDrainsBuffered(t *testing.T) {
	s := NewFrameStream()
	s.Push([]byte("a"))
	s.Close()

	// Buffered frames survive the close; only then does Next report
	// end-of-stream.
	frame, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "a", string(frame))

	_, ok = s.Next()
	assert.False(t, ok)
}

func TestFrameStreamPushAfterCloseDropped(t *testing.T) {
	s := NewFrameStream()
	s.Close()
	s.Push([]byte("late"))
	assert.Equal(t, 0, s.Len())

	_, ok := s.Next()
	assert.False(t, ok)
}

func TestFrameStreamCloseIdempotent(t *testing.T) {
	s := NewFrameStream()
	s.Close()
	s.Close()
	assert.True(t, s.Closed())
}

func TestFrameStreamNextWakesOnClose(t *testing.T) {
	s := NewFrameStream()

	done := make(chan bool, 1)
	go func() {
		_, ok := s.Next()
		done <- ok
	}()

	// Give the consumer time to block before closing.
	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestFrameStreamNextWakesOnPush(t *testing.T) {
	s := NewFrameStream()

	done := make(chan []byte, 1)
	go func() {
		frame, _ := s.Next()
		done <- frame
	}()

	time.Sleep(10 * time.Millisecond)
	s.Push([]byte("a"))

	select {
	case frame := <-done:
		assert.Equal(t, "a", string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Push")
	}
}
