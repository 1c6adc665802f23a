package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonAuth)
	if Reason(err) != ReasonAuth {
		t.Fatalf("expected reason %s, got %s", ReasonAuth, Reason(err))
	}
	if !HasReason(err, ReasonAuth) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonConnect)
	second := Wrap(first, ReasonStream)
	if Reason(second) != ReasonConnect {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestNewCarriesReasonAndMessage(t *testing.T) {
	err := New(ReasonConfig, "sample rate %d not supported", 44100)
	if Reason(err) != ReasonConfig {
		t.Fatalf("expected reason %s, got %s", ReasonConfig, Reason(err))
	}
	if err.Error() != "sample rate 44100 not supported" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		reason ReasonCode
		want   bool
	}{
		{ReasonConnect, true},
		{ReasonTimeout, true},
		{ReasonRateLimit, true},
		{ReasonSend, true},
		{ReasonAuth, false},
		{ReasonConfig, false},
		{ReasonAudioFormat, false},
		{ReasonBackpressure, false},
		{ReasonStream, false},
	}
	for _, tc := range cases {
		if got := Retryable(Wrap(assertErr{}, tc.reason)); got != tc.want {
			t.Fatalf("Retryable(%s) = %v, want %v", tc.reason, got, tc.want)
		}
	}
	if Retryable(nil) {
		t.Fatalf("nil error must not be retryable")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
