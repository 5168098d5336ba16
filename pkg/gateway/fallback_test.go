package gateway

import (
	"context"
	"testing"

	"golang.org/x/text/language"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

func TestMatchLocale(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.English},
		{"en-US", language.English},
		{"de", language.German},
		{"de-CH", language.German},
		{"es-419", language.Spanish},
		{"fr-CA,fr;q=0.9,en;q=0.8", language.French},
		{"zh-Hans-CN", language.Chinese},
		{"ja", language.English},
		{"!!", language.English},
	}
	for _, tt := range tests {
		if got := MatchLocale(tt.in); got != tt.want {
			t.Errorf("MatchLocale(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFallbackCoversEveryLocale(t *testing.T) {
	for reason, texts := range fallbackText {
		if len(texts) != len(Locales) {
			t.Errorf("%s: %d translations, want %d", reason, len(texts), len(Locales))
			continue
		}
		for i, tag := range Locales {
			if got := Fallback(tag.String(), reason); got != texts[i] {
				t.Errorf("Fallback(%v, %s) = %q, want %q", tag, reason, got, texts[i])
			}
		}
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{errors.New(errors.ErrCodeNetwork, "x"), ReasonNetwork},
		{context.DeadlineExceeded, ReasonNetwork},
		{errors.New(errors.ErrCodeUnauthorized, "x"), ReasonAuth},
		{errors.New(errors.ErrCodeRateLimited, "x"), ReasonRateLimit},
		{errors.New(errors.ErrCodeInvalidAttachment, "x"), ReasonInvalidInput},
		{errors.New(errors.ErrCodeBadResponse, "x"), ReasonGeneric},
		{context.Canceled, ReasonGeneric},
	}
	for _, tt := range tests {
		if got := reasonFor(tt.err); got != tt.want {
			t.Errorf("reasonFor(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
