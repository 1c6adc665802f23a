package yandex

import (
	"strings"
	"time"

	sttv3 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"

	"github.com/harunnryd/speechkit-stt/pkg/adapters/stt"
)

// translateResponse maps one SpeechKit streaming response onto the host
// framework event model. Pure: no state, no side effects. Responses that
// carry nothing for the caller (status codes, refinements of already
// delivered finals, empty updates) return ok=false.
func translateResponse(resp *sttv3.StreamingResponse, fallbackLang string) (stt.Event, bool) {
	if resp == nil {
		return stt.Event{}, false
	}
	switch ev := resp.GetEvent().(type) {
	case *sttv3.StreamingResponse_Partial:
		return alternativeEvent(stt.EventInterimTranscript, ev.Partial, fallbackLang)
	case *sttv3.StreamingResponse_Final:
		return alternativeEvent(stt.EventFinalTranscript, ev.Final, fallbackLang)
	case *sttv3.StreamingResponse_EouUpdate:
		return stt.Event{Type: stt.EventEndOfSpeech, Language: fallbackLang}, true
	default:
		return stt.Event{}, false
	}
}

func alternativeEvent(typ stt.EventType, upd *sttv3.AlternativeUpdate, fallbackLang string) (stt.Event, bool) {
	alts := upd.GetAlternatives()
	if len(alts) == 0 {
		return stt.Event{}, false
	}

	out := make([]stt.Alternative, 0, len(alts))
	best := 0
	for i, a := range alts {
		out = append(out, stt.Alternative{Text: a.GetText(), Confidence: a.GetConfidence()})
		if a.GetConfidence() > alts[best].GetConfidence() {
			best = i
		}
	}

	top := alts[best]
	text := top.GetText()
	if strings.TrimSpace(text) == "" {
		return stt.Event{}, false
	}

	lang := fallbackLang
	if est := top.GetLanguages(); len(est) > 0 && est[0].GetLanguageCode() != "" {
		lang = NormalizeLanguage(est[0].GetLanguageCode())
	}

	return stt.Event{
		Type:         typ,
		Text:         text,
		Confidence:   top.GetConfidence(),
		Language:     lang,
		Alternatives: out,
		Start:        time.Duration(top.GetStartTimeMs()) * time.Millisecond,
		End:          time.Duration(top.GetEndTimeMs()) * time.Millisecond,
	}, true
}
