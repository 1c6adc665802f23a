package yandex

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/speechkit-stt/pkg/adapters/stt"
	"github.com/harunnryd/speechkit-stt/pkg/configutil"
	"github.com/harunnryd/speechkit-stt/pkg/errorsx"
	"github.com/harunnryd/speechkit-stt/pkg/frames"
	"github.com/harunnryd/speechkit-stt/pkg/logging"
	"github.com/harunnryd/speechkit-stt/pkg/redact"
	"github.com/harunnryd/speechkit-stt/pkg/resilience"
)

const providerName = "yandex"

const (
	defaultSampleRate      = 16000
	defaultChannels        = 1
	defaultChunkBytes      = 4096
	defaultQueueSize       = 64
	defaultMaxReconnects   = 3
	defaultInitialBackoff  = time.Second
	defaultMaxBackoff      = 10 * time.Second
	defaultCloseTimeout    = 3 * time.Second
	defaultMaxReplayChunks = 50
)

// Config configures the Yandex SpeechKit recognizer. Zero values fall back
// to provider defaults; credentials fall back to the environment.
type Config struct {
	APIKey   string `mapstructure:"api_key"`
	FolderID string `mapstructure:"folder_id"`
	Endpoint string `mapstructure:"endpoint"`

	Language       string `mapstructure:"language"`
	Model          string `mapstructure:"model"`
	SampleRate     int    `mapstructure:"sample_rate"`
	Channels       int    `mapstructure:"channels"`
	DetectLanguage bool   `mapstructure:"detect_language"`

	// InterimResults defaults to true; a pointer distinguishes "unset" from
	// an explicit false.
	InterimResults  *bool `mapstructure:"interim_results"`
	ProfanityFilter bool  `mapstructure:"profanity_filter"`

	QueueSize       int `mapstructure:"queue_size"`
	ChunkBytes      int `mapstructure:"chunk_bytes"`
	MaxReconnects   int `mapstructure:"max_reconnects"`
	BackoffMS       int `mapstructure:"backoff_ms"`
	MaxBackoffMS    int `mapstructure:"max_backoff_ms"`
	CloseTimeoutMS  int `mapstructure:"close_timeout_ms"`
	MaxReplayChunks int `mapstructure:"max_replay_chunks"`
}

// options is the resolved, immutable session configuration: Config with all
// defaults applied. Built once in New and shared by every session.
type options struct {
	language        string
	model           string
	sampleRate      int
	channels        int
	detectLanguage  bool
	interim         bool
	profanityFilter bool

	queueSize       int
	chunkBytes      int
	maxReplayChunks int
	closeTimeout    time.Duration
	retry           resilience.RetryPolicy
}

// STT is the SpeechKit speech-to-text provider. Safe for concurrent use;
// each Stream call opens an independent gRPC session.
type STT struct {
	opts     options
	creds    Credentials
	endpoint string
	dial     dialFunc
	logger   *slog.Logger
	breaker  *resilience.CircuitBreaker
}

var (
	_ stt.Recognizer = (*STT)(nil)
)

// New builds a recognizer from cfg. Fields left empty in cfg fall back to
// the environment (YANDEX_API_KEY, YANDEX_FOLDER_ID, YANDEX_STT_ENDPOINT,
// YANDEX_STT_LANGUAGE, YANDEX_STT_MODEL), then to provider defaults.
func New(cfg Config) (*STT, error) {
	creds := Credentials{APIKey: cfg.APIKey, FolderID: cfg.FolderID}
	if creds.APIKey == "" || creds.FolderID == "" {
		env := CredentialsFromEnv()
		if creds.APIKey == "" {
			creds.APIKey = env.APIKey
		}
		if creds.FolderID == "" {
			creds.FolderID = env.FolderID
		}
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv(EnvEndpoint)
	}
	if cfg.Language == "" {
		cfg.Language = os.Getenv(EnvLanguage)
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv(EnvModel)
	}

	opts, err := resolveOptions(cfg)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	base := slog.Default()
	if debugFromEnv() {
		base = logging.InitLogger(slog.LevelDebug)
	}
	logger := logging.NewComponentLogger(base, "yandex_stt")
	logger.Debug("provider configured",
		slog.String("endpoint", endpoint),
		slog.String("folder_id", creds.FolderID),
		slog.String("api_key", redact.Secret(creds.APIKey)),
		slog.String("language", opts.language),
		slog.String("model", opts.model))

	return &STT{
		opts:     opts,
		creds:    creds,
		endpoint: endpoint,
		dial:     newDialer(endpoint, creds),
		logger:   logger,
		breaker:  resilience.NewCircuitBreaker(3, 30*time.Second),
	}, nil
}

func debugFromEnv() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvDebug))
	return err == nil && v
}

func resolveOptions(cfg Config) (options, error) {
	o := options{
		language:        NormalizeLanguage(cfg.Language),
		model:           cfg.Model,
		sampleRate:      cfg.SampleRate,
		channels:        cfg.Channels,
		detectLanguage:  cfg.DetectLanguage,
		interim:         true,
		profanityFilter: cfg.ProfanityFilter,
		queueSize:       cfg.QueueSize,
		chunkBytes:      cfg.ChunkBytes,
		maxReplayChunks: cfg.MaxReplayChunks,
		closeTimeout:    time.Duration(cfg.CloseTimeoutMS) * time.Millisecond,
		retry: resilience.NewRetryPolicy(
			cfg.MaxReconnects,
			time.Duration(cfg.BackoffMS)*time.Millisecond,
			time.Duration(cfg.MaxBackoffMS)*time.Millisecond,
		),
	}
	if cfg.InterimResults != nil {
		o.interim = *cfg.InterimResults
	}
	if o.language == "" {
		o.language = DefaultLanguage
	}
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.sampleRate == 0 {
		o.sampleRate = defaultSampleRate
	}
	if o.channels == 0 {
		o.channels = defaultChannels
	}
	if o.queueSize <= 0 {
		o.queueSize = defaultQueueSize
	}
	if o.chunkBytes <= 0 {
		o.chunkBytes = defaultChunkBytes
	}
	if o.maxReplayChunks == 0 {
		o.maxReplayChunks = defaultMaxReplayChunks
	}
	if o.closeTimeout <= 0 {
		o.closeTimeout = defaultCloseTimeout
	}

	if !o.detectLanguage && !IsSupportedLanguage(o.language) {
		return options{}, errorsx.New(errorsx.ReasonConfig,
			"unsupported language %q", o.language)
	}
	if !IsSupportedModel(o.model) {
		return options{}, errorsx.New(errorsx.ReasonConfig,
			"unsupported model %q", o.model)
	}
	if !IsSupportedSampleRate(o.sampleRate) {
		return options{}, errorsx.New(errorsx.ReasonConfig,
			"unsupported sample rate %d", o.sampleRate)
	}
	if o.channels != 1 {
		return options{}, errorsx.New(errorsx.ReasonConfig,
			"unsupported channel count %d, streaming recognition is mono", o.channels)
	}
	return o, nil
}

// FromSettings builds a recognizer from a free-form settings map, the shape
// provider blocks take in application config files.
func FromSettings(settings map[string]any) (*STT, error) {
	schema := configutil.Schema{
		Optional: []string{
			"api_key", "folder_id", "endpoint",
			"language", "model", "sample_rate", "channels", "detect_language",
			"interim_results", "profanity_filter",
			"queue_size", "chunk_bytes", "max_reconnects",
			"backoff_ms", "max_backoff_ms", "close_timeout_ms", "max_replay_chunks",
		},
	}
	if err := configutil.ValidateSettings(settings, schema); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}
	var cfg Config
	if err := configutil.DecodeSettings(settings, &cfg); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}
	return New(cfg)
}

func (p *STT) Name() string { return providerName }

func (p *STT) Languages() []string {
	out := make([]string, len(Languages))
	copy(out, Languages)
	return out
}

// Stream opens a streaming recognition session. The first connection is
// established before Stream returns, so credential and endpoint problems
// surface here rather than on the results channel.
func (p *STT) Stream(ctx context.Context) (stt.RecognitionStream, error) {
	if !p.breaker.Allow() {
		return nil, errorsx.New(errorsx.ReasonRateLimit,
			"provider temporarily suspended after repeated rate limit responses")
	}
	streamID := uuid.NewString()
	logger := logging.NewStreamLogger(p.logger, streamID)
	return newSpeechStream(ctx, p.opts, p.dial, logger, p.breaker)
}

// Recognize transcribes one buffered frame through a short-lived streaming
// session and returns the last final result.
func (p *STT) Recognize(ctx context.Context, frame frames.AudioFrame) (stt.Event, error) {
	session, err := p.Stream(ctx)
	if err != nil {
		return stt.Event{}, err
	}
	if err := session.PushFrame(frame); err != nil {
		_ = session.Close()
		return stt.Event{}, err
	}
	if err := session.Close(); err != nil {
		return stt.Event{}, err
	}

	var final stt.Event
	var found bool
	for ev := range session.Results() {
		if ev.Final() {
			final = ev
			found = true
		}
	}
	if err := session.Err(); err != nil {
		return stt.Event{}, err
	}
	if !found {
		return stt.Event{}, errorsx.New(errorsx.ReasonStream,
			"no final transcript for %s of audio", frame.Duration())
	}
	return final, nil
}

// Close releases shared resources. Connections are per-session, so there is
// nothing to tear down at the provider level.
func (p *STT) Close() error { return nil }
