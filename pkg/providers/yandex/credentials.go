package yandex

import (
	"os"

	"google.golang.org/grpc/metadata"

	"github.com/harunnryd/speechkit-stt/pkg/errorsx"
)

// Environment variables read by the provider.
const (
	EnvAPIKey   = "YANDEX_API_KEY"
	EnvFolderID = "YANDEX_FOLDER_ID"
	EnvEndpoint = "YANDEX_STT_ENDPOINT"
	EnvLanguage = "YANDEX_STT_LANGUAGE"
	EnvModel    = "YANDEX_STT_MODEL"
	EnvDebug    = "YANDEX_STT_DEBUG"
)

// Credentials hold Yandex Cloud authentication material. Immutable once
// constructed; safe to share across concurrent sessions.
type Credentials struct {
	APIKey   string
	FolderID string
}

// CredentialsFromEnv reads credentials from YANDEX_API_KEY and
// YANDEX_FOLDER_ID.
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:   os.Getenv(EnvAPIKey),
		FolderID: os.Getenv(EnvFolderID),
	}
}

// Validate fails fast on missing material: a missing folder is a
// configuration problem, a missing key an authentication one.
func (c Credentials) Validate() error {
	if c.FolderID == "" {
		return errorsx.New(errorsx.ReasonConfig,
			"folder_id is required: set %s or pass FolderID", EnvFolderID)
	}
	if c.APIKey == "" {
		return errorsx.New(errorsx.ReasonAuth,
			"api_key is required: set %s or pass APIKey", EnvAPIKey)
	}
	return nil
}

// grpcMetadata builds the per-call auth headers. SpeechKit v3 authenticates
// with an API key header, not a token exchange.
func (c Credentials) grpcMetadata() metadata.MD {
	return metadata.Pairs(
		"authorization", "Api-Key "+c.APIKey,
		"x-folder-id", c.FolderID,
	)
}
