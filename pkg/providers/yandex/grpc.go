package yandex

import (
	"context"
	"crypto/tls"
	"io"
	"strings"
	"time"

	sttv3 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/harunnryd/speechkit-stt/pkg/errorsx"
)

// SpeechKit caps streaming messages at 4 MiB.
const maxMessageBytes = 4 * 1024 * 1024

// recognizeStream is the slice of the generated streaming client the session
// adapter needs. The narrow interface keeps the adapter testable against a
// scripted fake.
type recognizeStream interface {
	Send(*sttv3.StreamingRequest) error
	Recv() (*sttv3.StreamingResponse, error)
	CloseSend() error
}

type dialFunc func(ctx context.Context) (recognizeStream, io.Closer, error)

// newDialer returns a dialFunc that opens a TLS channel to the SpeechKit
// endpoint and starts one RecognizeStreaming call authenticated via API-key
// metadata.
func newDialer(endpoint string, creds Credentials) dialFunc {
	return func(ctx context.Context) (recognizeStream, io.Closer, error) {
		conn, err := grpc.NewClient(endpoint,
			grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                60 * time.Second,
				Timeout:             10 * time.Second,
				PermitWithoutStream: true,
			}),
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageBytes),
				grpc.MaxCallSendMsgSize(maxMessageBytes),
			),
		)
		if err != nil {
			return nil, nil, errorsx.Wrap(err, errorsx.ReasonConnect)
		}
		callCtx := metadata.NewOutgoingContext(ctx, creds.grpcMetadata())
		stream, err := sttv3.NewRecognizerClient(conn).RecognizeStreaming(callCtx)
		if err != nil {
			_ = conn.Close()
			return nil, nil, classifyGRPCError(err)
		}
		return stream, conn, nil
	}
}

func buildStreamingOptions(o options) *sttv3.StreamingOptions {
	model := &sttv3.RecognitionModelOptions{
		Model: o.model,
		AudioFormat: &sttv3.AudioFormatOptions{
			AudioFormat: &sttv3.AudioFormatOptions_RawAudio{
				RawAudio: &sttv3.RawAudio{
					AudioEncoding:     sttv3.RawAudio_LINEAR16_PCM,
					SampleRateHertz:   int64(o.sampleRate),
					AudioChannelCount: int64(o.channels),
				},
			},
		},
		TextNormalization: &sttv3.TextNormalizationOptions{
			TextNormalization: sttv3.TextNormalizationOptions_TEXT_NORMALIZATION_ENABLED,
			ProfanityFilter:   o.profanityFilter,
			LiteratureText:    false,
		},
		AudioProcessingType: sttv3.RecognitionModelOptions_REAL_TIME,
	}
	// Language detection and a whitelist are mutually exclusive; leaving the
	// restriction unset lets the service pick the language.
	if o.language != "" && !o.detectLanguage {
		model.LanguageRestriction = &sttv3.LanguageRestrictionOptions{
			RestrictionType: sttv3.LanguageRestrictionOptions_WHITELIST,
			LanguageCode:    []string{o.language},
		}
	}
	return &sttv3.StreamingOptions{RecognitionModel: model}
}

func sessionRequest(opts *sttv3.StreamingOptions) *sttv3.StreamingRequest {
	return &sttv3.StreamingRequest{
		Event: &sttv3.StreamingRequest_SessionOptions{SessionOptions: opts},
	}
}

func chunkRequest(data []byte) *sttv3.StreamingRequest {
	return &sttv3.StreamingRequest{
		Event: &sttv3.StreamingRequest_Chunk{Chunk: &sttv3.AudioChunk{Data: data}},
	}
}

// classifyGRPCError maps gRPC status codes onto the provider error taxonomy.
func classifyGRPCError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return errorsx.Wrap(err, errorsx.ReasonConnect)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return errorsx.Wrap(err, errorsx.ReasonAuth)
	case codes.Unavailable:
		return errorsx.Wrap(err, errorsx.ReasonConnect)
	case codes.DeadlineExceeded:
		return errorsx.Wrap(err, errorsx.ReasonTimeout)
	case codes.ResourceExhausted:
		return errorsx.Wrap(err, errorsx.ReasonRateLimit)
	case codes.InvalidArgument:
		return errorsx.Wrap(err, errorsx.ReasonStream)
	case codes.Internal:
		// Mid-stream connection resets arrive as INTERNAL with RST_STREAM.
		if strings.Contains(st.Message(), "RST_STREAM") {
			return errorsx.Wrap(err, errorsx.ReasonConnect)
		}
		return errorsx.Wrap(err, errorsx.ReasonStream)
	default:
		return errorsx.Wrap(err, errorsx.ReasonStream)
	}
}
