package metrics

import (
	"sync"
	"time"
)

// StreamStats accumulates per-session throughput counters. All methods are
// safe for concurrent use by the sender and receiver halves of a session.
type StreamStats struct {
	mu     sync.Mutex
	frames int64
	bytes  int64
	chunks int64
	events int64
	resets int64
}

func (s *StreamStats) AddFrame(n int) {
	s.mu.Lock()
	s.frames++
	s.bytes += int64(n)
	s.mu.Unlock()
}

func (s *StreamStats) AddChunk() {
	s.mu.Lock()
	s.chunks++
	s.mu.Unlock()
}

func (s *StreamStats) AddEvent() {
	s.mu.Lock()
	s.events++
	s.mu.Unlock()
}

func (s *StreamStats) AddReset() {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Frames int64
	Bytes  int64
	Chunks int64
	Events int64
	Resets int64
}

func (s *StreamStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Frames: s.frames,
		Bytes:  s.bytes,
		Chunks: s.chunks,
		Events: s.events,
		Resets: s.resets,
	}
}

// PeriodicCollector invokes a callback with a stats snapshot at a fixed
// interval until stopped. Stop is idempotent.
type PeriodicCollector struct {
	stats    *StreamStats
	interval time.Duration
	callback func(Snapshot)
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func NewPeriodicCollector(stats *StreamStats, interval time.Duration, callback func(Snapshot)) *PeriodicCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PeriodicCollector{
		stats:    stats,
		interval: interval,
		callback: callback,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *PeriodicCollector) Start() {
	go func() {
		defer close(c.done)
		t := time.NewTicker(c.interval)
		defer t.Stop()
		last := Snapshot{}
		for {
			select {
			case <-t.C:
				snap := c.stats.Snapshot()
				if snap != last {
					c.callback(snap)
					last = snap
				}
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *PeriodicCollector) Stop() {
	c.once.Do(func() {
		close(c.stop)
		<-c.done
	})
}
