package yandex

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ru", "ru-RU"},
		{"en", "en-US"},
		{"RU", "ru-RU"},
		{"russian", "ru-RU"},
		{"English", "en-US"},
		{" tr-TR ", "tr-TR"},
		{"de", "de"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSupportedSets(t *testing.T) {
	if !IsSupportedLanguage("ru-RU") || IsSupportedLanguage("xx-XX") {
		t.Fatal("language set broken")
	}
	if !IsSupportedModel("general") || IsSupportedModel("turbo") {
		t.Fatal("model set broken")
	}
	if !IsSupportedSampleRate(16000) || IsSupportedSampleRate(44100) {
		t.Fatal("sample rate set broken")
	}
}
