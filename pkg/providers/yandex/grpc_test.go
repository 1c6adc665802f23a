package yandex

import (
	"errors"
	"testing"

	sttv3 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/harunnryd/speechkit-stt/pkg/errorsx"
)

func TestClassifyGRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errorsx.ReasonCode
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad key"), errorsx.ReasonAuth},
		{"permission_denied", status.Error(codes.PermissionDenied, "wrong folder"), errorsx.ReasonAuth},
		{"unavailable", status.Error(codes.Unavailable, "connection refused"), errorsx.ReasonConnect},
		{"deadline", status.Error(codes.DeadlineExceeded, "timed out"), errorsx.ReasonTimeout},
		{"resource_exhausted", status.Error(codes.ResourceExhausted, "quota"), errorsx.ReasonRateLimit},
		{"invalid_argument", status.Error(codes.InvalidArgument, "bad options"), errorsx.ReasonStream},
		{"internal_rst_stream", status.Error(codes.Internal, "stream terminated by RST_STREAM"), errorsx.ReasonConnect},
		{"internal_other", status.Error(codes.Internal, "server bug"), errorsx.ReasonStream},
		{"plain_error", errors.New("dial tcp: refused"), errorsx.ReasonConnect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorsx.Reason(classifyGRPCError(tt.err))
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
	if classifyGRPCError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestBuildStreamingOptionsWhitelist(t *testing.T) {
	o, err := resolveOptions(Config{Language: "en-US", SampleRate: 8000})
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	so := buildStreamingOptions(o)

	model := so.GetRecognitionModel()
	if model.GetModel() != DefaultModel {
		t.Fatalf("model: %q", model.GetModel())
	}
	raw := model.GetAudioFormat().GetRawAudio()
	if raw.GetAudioEncoding() != sttv3.RawAudio_LINEAR16_PCM {
		t.Fatalf("encoding: %v", raw.GetAudioEncoding())
	}
	if raw.GetSampleRateHertz() != 8000 || raw.GetAudioChannelCount() != 1 {
		t.Fatalf("raw audio: %d Hz, %d ch", raw.GetSampleRateHertz(), raw.GetAudioChannelCount())
	}

	restr := model.GetLanguageRestriction()
	if restr.GetRestrictionType() != sttv3.LanguageRestrictionOptions_WHITELIST {
		t.Fatalf("restriction type: %v", restr.GetRestrictionType())
	}
	if len(restr.GetLanguageCode()) != 1 || restr.GetLanguageCode()[0] != "en-US" {
		t.Fatalf("language codes: %v", restr.GetLanguageCode())
	}
	if model.GetAudioProcessingType() != sttv3.RecognitionModelOptions_REAL_TIME {
		t.Fatalf("processing type: %v", model.GetAudioProcessingType())
	}
}

func TestBuildStreamingOptionsDetectLanguage(t *testing.T) {
	o, err := resolveOptions(Config{DetectLanguage: true})
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	so := buildStreamingOptions(o)
	if so.GetRecognitionModel().GetLanguageRestriction() != nil {
		t.Fatal("language detection must leave the restriction unset")
	}
}

func TestSessionAndChunkRequests(t *testing.T) {
	o, _ := resolveOptions(Config{})
	sreq := sessionRequest(buildStreamingOptions(o))
	if sreq.GetSessionOptions() == nil {
		t.Fatal("session request must carry streaming options")
	}

	creq := chunkRequest([]byte{1, 2, 3})
	if got := creq.GetChunk().GetData(); len(got) != 3 {
		t.Fatalf("chunk data: %v", got)
	}
}
