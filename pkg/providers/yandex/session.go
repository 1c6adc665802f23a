package yandex

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	sttv3 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"

	"github.com/harunnryd/speechkit-stt/pkg/adapters/stt"
	"github.com/harunnryd/speechkit-stt/pkg/errorsx"
	"github.com/harunnryd/speechkit-stt/pkg/frames"
	"github.com/harunnryd/speechkit-stt/pkg/metrics"
	"github.com/harunnryd/speechkit-stt/pkg/redact"
	"github.com/harunnryd/speechkit-stt/pkg/resilience"
)

const (
	stateStreaming int32 = iota + 1
	stateReconnecting
	stateClosing
	stateClosed
)

// SpeechStream is one logical recognition session. It owns a single
// underlying RecognizeStreaming call at a time; a transient transport
// failure swaps in a new call while the logical session survives.
//
// Two halves run per session: a sender draining the bounded frame queue and
// a receiver translating service responses into events. They share nothing
// but the session's own queues.
type SpeechStream struct {
	opts    options
	logger  *slog.Logger
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker

	dial      dialFunc
	protoOpts *sttv3.StreamingOptions

	in  chan frames.AudioFrame
	out chan stt.Event

	chunker *chunker
	replay  *replayBuffer

	stats     *metrics.StreamStats
	collector *metrics.PeriodicCollector

	cancel context.CancelFunc

	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	state atomic.Int32

	errMu sync.Mutex
	err   error

	// receiver-side guard: once an utterance's final result is delivered, its
	// late interims are suppressed until the next end-of-utterance.
	finalSeen bool
}

// newSpeechStream establishes the first connection synchronously so
// misconfiguration and credential rejection surface at open, then hands the
// live call to the background session loop.
func newSpeechStream(ctx context.Context, opts options, dial dialFunc, logger *slog.Logger, breaker *resilience.CircuitBreaker) (*SpeechStream, error) {
	sctx, cancel := context.WithCancel(ctx)

	s := &SpeechStream{
		opts:      opts,
		logger:    logger,
		retry:     opts.retry,
		breaker:   breaker,
		dial:      dial,
		protoOpts: buildStreamingOptions(opts),
		in:        make(chan frames.AudioFrame, opts.queueSize),
		out:       make(chan stt.Event, eventBuffer),
		chunker:   newChunker(opts.chunkBytes),
		replay:    newReplayBuffer(opts.maxReplayChunks),
		stats:     &metrics.StreamStats{},
		cancel:    cancel,
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	stream, conn, err := s.connect(sctx)
	if err != nil {
		cancel()
		s.notifyBreaker(err)
		return nil, err
	}
	if breaker != nil {
		breaker.OnSuccess()
	}

	s.collector = metrics.NewPeriodicCollector(s.stats, statsInterval, func(snap metrics.Snapshot) {
		s.logger.Debug("stream_throughput",
			slog.Int64("frames", snap.Frames),
			slog.Int64("bytes", snap.Bytes),
			slog.Int64("chunks", snap.Chunks),
			slog.Int64("events", snap.Events),
			slog.Int64("resets", snap.Resets))
	})
	s.collector.Start()

	s.state.Store(stateStreaming)
	go s.run(sctx, stream, conn)
	return s, nil
}

const (
	eventBuffer   = 32
	statsInterval = 10 * time.Second
)

// PushFrame enqueues audio for transmission. Frame format is validated
// against the session configuration before the frame is accepted; a
// saturated queue fails with a backpressure reason instead of blocking.
func (s *SpeechStream) PushFrame(f frames.AudioFrame) error {
	if st := s.state.Load(); st >= stateClosing {
		return errorsx.New(errorsx.ReasonStream, "session closed")
	}
	if err := s.validateFrame(f); err != nil {
		return err
	}
	s.stats.AddFrame(len(f.RawPayload()))
	select {
	case s.in <- f:
		return nil
	default:
		return errorsx.New(errorsx.ReasonBackpressure,
			"outbound queue full (%d frames pending)", cap(s.in))
	}
}

// Results delivers recognition events in arrival order. The channel is
// closed when the session ends; check Err afterwards.
func (s *SpeechStream) Results() <-chan stt.Event { return s.out }

// Err reports the terminal session error, nil on a clean shutdown. Only
// meaningful after Results is closed.
func (s *SpeechStream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close signals end of input, waits for the service to flush pending
// results up to the drain timeout, then forcibly releases the connection.
// Idempotent.
func (s *SpeechStream) Close() error {
	s.closeOnce.Do(func() {
		// CAS loop: only move forward, never regress a concurrent transition.
		for {
			st := s.state.Load()
			if st >= stateClosing || s.state.CompareAndSwap(st, stateClosing) {
				break
			}
		}
		close(s.closing)
		select {
		case <-s.done:
		case <-time.After(s.opts.closeTimeout):
			s.logger.Warn("close_drain_timeout",
				slog.Duration("timeout", s.opts.closeTimeout))
			s.cancel()
			<-s.done
		}
	})
	return nil
}

func (s *SpeechStream) validateFrame(f frames.AudioFrame) error {
	if f.Rate() != s.opts.sampleRate {
		return errorsx.New(errorsx.ReasonAudioFormat,
			"frame sample rate %d does not match session rate %d", f.Rate(), s.opts.sampleRate)
	}
	if f.Channels() != s.opts.channels {
		return errorsx.New(errorsx.ReasonAudioFormat,
			"frame has %d channels, session expects %d", f.Channels(), s.opts.channels)
	}
	return nil
}

// connect dials a fresh RecognizeStreaming call and sends session options as
// the first protocol message.
func (s *SpeechStream) connect(ctx context.Context) (recognizeStream, io.Closer, error) {
	stream, conn, err := s.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := stream.Send(sessionRequest(s.protoOpts)); err != nil {
		_ = conn.Close()
		return nil, nil, errorsx.Wrap(err, errorsx.ReasonSend)
	}
	s.finalSeen = false
	return stream, conn, nil
}

// run is the session loop: one iteration per underlying connection. A
// retryable failure emits a session_reset event and reconnects with
// exponential backoff, replaying chunks sent since the last checkpoint;
// exhaustion or a non-retryable failure terminates the session.
func (s *SpeechStream) run(ctx context.Context, stream recognizeStream, conn io.Closer) {
	defer func() {
		s.collector.Stop()
		s.cancel()
		s.state.Store(stateClosed)
		close(s.out)
		close(s.done)
	}()

	attempt := 0
	for {
		var err error
		if stream == nil {
			stream, conn, err = s.connect(ctx)
		}
		if err == nil {
			s.state.CompareAndSwap(stateReconnecting, stateStreaming)
			if s.breaker != nil {
				s.breaker.OnSuccess()
			}
			err = s.runSession(ctx, stream, conn)
			stream, conn = nil, nil
			if err == nil {
				return
			}
		}
		if s.isClosing() || ctx.Err() != nil {
			return
		}
		s.notifyBreaker(err)
		if !errorsx.Retryable(err) || attempt >= s.retry.MaxAttempts {
			s.fail(err)
			return
		}

		attempt++
		s.state.CompareAndSwap(stateStreaming, stateReconnecting)
		s.stats.AddReset()
		s.logger.Warn("session_reconnecting",
			slog.Int("attempt", attempt),
			slog.Int("replay_chunks", s.replay.Len()),
			slog.String("error", err.Error()))
		s.emit(ctx, stt.Event{Type: stt.EventSessionReset, Language: s.language()})
		if werr := s.retry.Wait(ctx, attempt); werr != nil {
			return
		}
		// Close may have landed during the backoff; do not dial again.
		if s.isClosing() {
			return
		}
	}
}

// runSession drives one connection to completion: the sender goroutine
// flushes the frame queue while the receiver loop translates responses.
// Returns nil on clean end of stream.
func (s *SpeechStream) runSession(ctx context.Context, stream recognizeStream, conn io.Closer) error {
	defer conn.Close()

	senderCtx, stopSender := context.WithCancel(ctx)
	defer stopSender()

	sendDone := make(chan error, 1)
	go func() { sendDone <- s.sendLoop(senderCtx, stream) }()

	var recvErr error
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !s.isClosing() && ctx.Err() == nil {
				recvErr = classifyGRPCError(err)
			}
			break
		}
		s.handleResponse(ctx, resp)
	}

	stopSender()
	sendErr := <-sendDone

	if recvErr != nil {
		return recvErr
	}
	if sendErr != nil && !s.isClosing() && ctx.Err() == nil {
		return sendErr
	}
	return nil
}

func (s *SpeechStream) sendLoop(ctx context.Context, stream recognizeStream) error {
	// A reconnected session starts by resending unacknowledged audio.
	for _, chunk := range s.replay.Pending() {
		if err := stream.Send(chunkRequest(chunk)); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonSend)
		}
	}

	for {
		select {
		case f := <-s.in:
			if err := s.sendFrame(stream, f); err != nil {
				return err
			}
		case <-s.closing:
			return s.finishSending(stream)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *SpeechStream) sendFrame(stream recognizeStream, f frames.AudioFrame) error {
	chunks := s.chunker.Feed(f.RawPayload())
	frames.ReleaseAudioFrame(f)
	for _, c := range chunks {
		s.replay.Add(c)
		s.stats.AddChunk()
		if err := stream.Send(chunkRequest(c)); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonSend)
		}
	}
	return nil
}

// finishSending drains frames already queued, flushes the partial chunk and
// half-closes the call so the service emits its remaining results.
func (s *SpeechStream) finishSending(stream recognizeStream) error {
	for {
		select {
		case f := <-s.in:
			if err := s.sendFrame(stream, f); err != nil {
				return err
			}
			continue
		default:
		}
		break
	}
	if tail := s.chunker.Flush(); len(tail) > 0 {
		if err := stream.Send(chunkRequest(tail)); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonSend)
		}
	}
	if err := stream.CloseSend(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSend)
	}
	return nil
}

func (s *SpeechStream) handleResponse(ctx context.Context, resp *sttv3.StreamingResponse) {
	ev, ok := translateResponse(resp, s.language())
	if !ok {
		return
	}

	switch ev.Type {
	case stt.EventInterimTranscript:
		if s.finalSeen || !s.opts.interim {
			return
		}
		s.logger.Debug("interim_transcript",
			slog.String("text", redact.Text(ev.Text)),
			slog.Float64("confidence", ev.Confidence))
	case stt.EventFinalTranscript:
		s.finalSeen = true
		s.replay.Checkpoint()
		s.logger.Info("final_transcript",
			slog.String("text", redact.Text(ev.Text)),
			slog.Float64("confidence", ev.Confidence),
			slog.String("language", ev.Language))
	case stt.EventEndOfSpeech:
		s.finalSeen = false
	}

	s.stats.AddEvent()
	s.emit(ctx, ev)
}

func (s *SpeechStream) emit(ctx context.Context, ev stt.Event) {
	select {
	case s.out <- ev:
	case <-ctx.Done():
	}
}

func (s *SpeechStream) fail(err error) {
	// An exhausted retry budget escalates to a terminal stream error; fatal
	// reasons (auth, format) keep their own code.
	if errorsx.Retryable(err) {
		err = errorsx.ReasonedError{Err: err, Reason: errorsx.ReasonStream}
	}
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
	s.logger.Error("session_failed", slog.String("error", err.Error()),
		slog.String("reason", string(errorsx.Reason(err))))
}

func (s *SpeechStream) notifyBreaker(err error) {
	if s.breaker == nil {
		return
	}
	if errorsx.HasReason(err, errorsx.ReasonRateLimit) {
		s.breaker.OnError(resilience.RateLimitError{Provider: providerName, Message: err.Error()})
	}
}

func (s *SpeechStream) isClosing() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *SpeechStream) language() string {
	if s.opts.language != "" {
		return s.opts.language
	}
	return DefaultLanguage
}

var _ stt.RecognitionStream = (*SpeechStream)(nil)
