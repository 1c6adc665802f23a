package stt

import (
	"context"
	"time"

	"github.com/harunnryd/speechkit-stt/pkg/frames"
)

// Recognizer is the capability set a speech-to-text vendor exposes to the
// agent framework. Implementations are safe for concurrent use; each call to
// Stream opens an independent session.
type Recognizer interface {
	// Name returns the vendor name for logging/metrics.
	Name() string
	// Languages returns the language tags the vendor accepts.
	Languages() []string
	// Stream opens a streaming recognition session.
	Stream(ctx context.Context) (RecognitionStream, error)
	// Recognize transcribes a single buffered frame and returns the final result.
	Recognize(ctx context.Context, frame frames.AudioFrame) (Event, error)
	// Close releases vendor resources shared across sessions.
	Close() error
}

// RecognitionStream is one live transcription session.
//
// Results delivers events in arrival order and is closed when the session
// ends; a closed channel is the end-of-stream marker. After the channel is
// closed, Err reports the terminal error, nil on a clean shutdown.
type RecognitionStream interface {
	// PushFrame enqueues audio for transmission. It never blocks: a saturated
	// outbound queue fails with a backpressure error and the caller retries
	// after draining.
	PushFrame(frame frames.AudioFrame) error
	Results() <-chan Event
	Err() error
	// Close signals end of input, drains pending events up to the session's
	// drain timeout and releases the connection. Idempotent.
	Close() error
}

type EventType string

const (
	// EventInterimTranscript is a provisional transcription for an
	// in-progress utterance. It may be revised by later events.
	EventInterimTranscript EventType = "interim_transcript"
	// EventFinalTranscript is the terminal transcription for an utterance.
	EventFinalTranscript EventType = "final_transcript"
	// EventEndOfSpeech marks the end of an utterance as segmented by the vendor.
	EventEndOfSpeech EventType = "end_of_speech"
	// EventSessionReset tells the caller the underlying connection was
	// re-established mid-session; interim results for the in-flight utterance
	// are discarded.
	EventSessionReset EventType = "session_reset"
)

type Alternative struct {
	Text       string
	Confidence float64
}

// Event is one recognition result handed to the caller.
type Event struct {
	Type         EventType
	Text         string
	Confidence   float64
	Language     string
	Alternatives []Alternative
	Start        time.Duration
	End          time.Duration
}

// Final reports whether the event closes an utterance.
func (e Event) Final() bool { return e.Type == EventFinalTranscript }
