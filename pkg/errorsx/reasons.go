package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// ReasonConfig marks invalid or missing configuration. Surfaced at
	// construction, never retried.
	ReasonConfig ReasonCode = "config"
	// ReasonAuth marks credential rejection by the recognition service.
	ReasonAuth ReasonCode = "auth"

	// Transport failures eligible for reconnection.
	ReasonConnect   ReasonCode = "connect"
	ReasonTimeout   ReasonCode = "timeout"
	ReasonRateLimit ReasonCode = "rate_limit"

	// ReasonBackpressure marks a saturated outbound queue; the caller slows
	// down, nothing is retried internally.
	ReasonBackpressure ReasonCode = "backpressure"
	// ReasonAudioFormat marks an audio frame that does not match the session
	// configuration. Fatal for the stream.
	ReasonAudioFormat ReasonCode = "audio_format"
	// ReasonSend marks a failed outbound protocol write.
	ReasonSend ReasonCode = "send"
	// ReasonStream marks a terminal session failure after retries are
	// exhausted.
	ReasonStream ReasonCode = "stream"
)

// Retryable reports whether the error names a transient condition the
// session adapter may reconnect from.
func Retryable(err error) bool {
	switch Reason(err) {
	case ReasonConnect, ReasonTimeout, ReasonRateLimit, ReasonSend:
		return true
	default:
		return false
	}
}
