package yandex

import "sync"

// chunker turns irregularly sized PCM frames into fixed-size transmission
// chunks. Bytes are emitted in arrival order; nothing is dropped or
// reordered. The leftover partial chunk is obtained via Flush at end of
// input.
type chunker struct {
	size int
	buf  []byte
}

func newChunker(size int) *chunker {
	if size <= 0 {
		size = defaultChunkBytes
	}
	return &chunker{size: size}
}

func (c *chunker) Feed(p []byte) [][]byte {
	c.buf = append(c.buf, p...)
	var out [][]byte
	for len(c.buf) >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, c.buf[:c.size])
		c.buf = c.buf[c.size:]
		out = append(out, chunk)
	}
	return out
}

func (c *chunker) Flush() []byte {
	if len(c.buf) == 0 {
		return nil
	}
	out := make([]byte, len(c.buf))
	copy(out, c.buf)
	c.buf = c.buf[:0]
	return out
}

func (c *chunker) Buffered() int { return len(c.buf) }

// replayBuffer retains chunks sent since the last acknowledged checkpoint (a
// final result). On reconnect those chunks are resent so the tail of the
// interrupted utterance is not lost. Bounded: oldest chunks are dropped once
// max is exceeded.
type replayBuffer struct {
	mu     sync.Mutex
	max    int
	chunks [][]byte
}

func newReplayBuffer(max int) *replayBuffer {
	return &replayBuffer{max: max}
}

func (r *replayBuffer) Add(chunk []byte) {
	if r.max <= 0 {
		return
	}
	r.mu.Lock()
	r.chunks = append(r.chunks, chunk)
	if len(r.chunks) > r.max {
		r.chunks = r.chunks[len(r.chunks)-r.max:]
	}
	r.mu.Unlock()
}

func (r *replayBuffer) Pending() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.chunks))
	copy(out, r.chunks)
	return out
}

// Checkpoint discards retained chunks; audio up to the last final result is
// acknowledged by the service and never replayed.
func (r *replayBuffer) Checkpoint() {
	r.mu.Lock()
	r.chunks = r.chunks[:0]
	r.mu.Unlock()
}

func (r *replayBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}
