package yandex

import "strings"

const (
	DefaultEndpoint = "stt.api.cloud.yandex.net:443"
	DefaultModel    = "general"
	DefaultLanguage = "ru-RU"
)

// Models supported by SpeechKit STT v3.
var Models = []string{
	"general",
	"general:rc",
	"general:deprecated",
}

// Languages accepted by the general model.
var Languages = []string{
	"ru-RU", "en-US", "tr-TR", "kk-KK", "uz-UZ", "hy-AM", "he-IL",
	"ar", "eu", "ba", "be", "bg", "ca", "cs", "da", "de", "el", "es",
	"et", "fi", "fr", "ga", "it", "ja", "ko", "ky", "lt", "lv", "mn",
	"nl", "no", "pl", "pt", "ro", "sk", "sl", "sv", "tg", "th", "tt",
	"uk", "vi", "zh",
}

// SampleRates lists the PCM sample rates the service accepts.
var SampleRates = []int{8000, 16000, 48000}

var languageAliases = map[string]string{
	"ru":      "ru-RU",
	"en":      "en-US",
	"russian": "ru-RU",
	"english": "en-US",
}

// NormalizeLanguage maps common shorthand codes to the tags SpeechKit
// expects. Unknown values pass through unchanged.
func NormalizeLanguage(lang string) string {
	if mapped, ok := languageAliases[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return mapped
	}
	return strings.TrimSpace(lang)
}

func IsSupportedLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func IsSupportedModel(model string) bool {
	for _, m := range Models {
		if m == model {
			return true
		}
	}
	return false
}

func IsSupportedSampleRate(rate int) bool {
	for _, r := range SampleRates {
		if r == rate {
			return true
		}
	}
	return false
}
