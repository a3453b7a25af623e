package export

import "sync"

// FrameStream is the ordered conduit of encoded frame images between the
// renderer and the encoder. Pushes append without blocking; the encoder
// drains at its own pace. This is deliberately not flow-controlled from the
// producer side, so the buffer grows when the renderer outpaces the encoder.
type FrameStream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames [][]byte
	closed bool
}

// NewFrameStream creates an empty frame stream.
func NewFrameStream() *FrameStream {
	s := &FrameStream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Push appends one frame image. It never blocks. Pushes after Close are
// dropped.
func (s *FrameStream) Push(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.frames = append(s.frames, frame)
	s.cond.Signal()
}

// Close marks end-of-stream. Buffered frames remain consumable. Idempotent.
func (s *FrameStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cond.Broadcast()
}

// Next blocks until a frame is available or the stream is closed and
// drained. The second return is false once end-of-stream is reached.
func (s *FrameStream) Next() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.frames) == 0 && !s.closed {
		s.cond.Wait()
	}

	if len(s.frames) == 0 {
		return nil, false
	}

	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, true
}

// Len returns the number of buffered frames.
func (s *FrameStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Closed reports whether end-of-stream has been signalled.
func (s *FrameStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
