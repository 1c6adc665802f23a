package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/speechkit-stt/pkg/adapters/stt"
	"github.com/harunnryd/speechkit-stt/pkg/configutil"
	"github.com/harunnryd/speechkit-stt/pkg/errorsx"
	"github.com/harunnryd/speechkit-stt/pkg/frames"
)

// Config scripts the recognizer output. The first pushed frame triggers the
// scripted sequence; later frames are accepted and ignored.
type Config struct {
	Transcript      string  `mapstructure:"transcript"`
	Interim         string  `mapstructure:"interim"`
	EmitInterim     bool    `mapstructure:"emit_interim"`
	EmitEndOfSpeech bool    `mapstructure:"emit_end_of_speech"`
	Language        string  `mapstructure:"language"`
	Confidence      float64 `mapstructure:"confidence"`
}

// STT is a scripted in-memory recognizer for host-side testing and offline
// demo runs. No network, no goroutines beyond the caller's.
type STT struct {
	cfg Config
}

var _ stt.Recognizer = (*STT)(nil)

func New(cfg Config) *STT {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = 0.95
	}
	return &STT{cfg: cfg}
}

// FromSettings builds a scripted recognizer from a settings map.
func FromSettings(settings map[string]any) (*STT, error) {
	schema := configutil.Schema{
		Optional: []string{
			"transcript", "interim", "emit_interim", "emit_end_of_speech",
			"language", "confidence",
		},
	}
	if err := configutil.ValidateSettings(settings, schema); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}
	var cfg Config
	if err := configutil.DecodeSettings(settings, &cfg); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}
	return New(cfg), nil
}

func (m *STT) Name() string { return "mock" }

func (m *STT) Languages() []string { return []string{m.cfg.Language} }

func (m *STT) Stream(ctx context.Context) (stt.RecognitionStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStream)
	}
	return &Stream{cfg: m.cfg, out: make(chan stt.Event, 8)}, nil
}

func (m *STT) Recognize(_ context.Context, _ frames.AudioFrame) (stt.Event, error) {
	return m.finalEvent(), nil
}

func (m *STT) Close() error { return nil }

func (m *STT) finalEvent() stt.Event {
	return stt.Event{
		Type:       stt.EventFinalTranscript,
		Text:       m.cfg.Transcript,
		Confidence: m.cfg.Confidence,
		Language:   m.cfg.Language,
		Alternatives: []stt.Alternative{
			{Text: m.cfg.Transcript, Confidence: m.cfg.Confidence},
		},
	}
}

// Stream plays the scripted sequence into its results channel on the first
// frame. Safe for concurrent use.
type Stream struct {
	cfg Config
	out chan stt.Event

	mu      sync.Mutex
	emitted bool
	closed  bool
}

var _ stt.RecognitionStream = (*Stream)(nil)

func (s *Stream) PushFrame(_ frames.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errorsx.New(errorsx.ReasonStream, "session closed")
	}
	if s.emitted {
		return nil
	}
	s.emitted = true

	if s.cfg.EmitInterim {
		interim := s.cfg.Interim
		if interim == "" {
			interim = s.cfg.Transcript
		}
		s.out <- stt.Event{
			Type:       stt.EventInterimTranscript,
			Text:       interim,
			Confidence: s.cfg.Confidence / 2,
			Language:   s.cfg.Language,
		}
	}
	s.out <- (&STT{cfg: s.cfg}).finalEvent()
	if s.cfg.EmitEndOfSpeech {
		s.out <- stt.Event{Type: stt.EventEndOfSpeech, Language: s.cfg.Language}
	}
	return nil
}

func (s *Stream) Results() <-chan stt.Event { return s.out }

func (s *Stream) Err() error { return nil }

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return nil
}
