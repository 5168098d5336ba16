package llm

import (
	"context"
	"testing"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{"gemini", Gemini, false},
		{"Google", Gemini, false},
		{"anthropic", Anthropic, false},
		{"claude", Anthropic, false},
		{" bedrock ", Bedrock, false},
		{"AWS", Bedrock, false},
		{"openai", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	ctx := context.Background()
	for _, name := range []Name{Gemini, Anthropic} {
		_, err := NewProvider(ctx, Config{Provider: name})
		if !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("NewProvider(%s) without key: error = %v, want %s", name, err, errors.ErrCodeInvalidConfig)
		}
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: "llama"}); err == nil {
		t.Error("NewProvider(llama) should fail")
	}
}

func TestNewProviderDefaultModel(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: Anthropic, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.DefaultModel() != DefaultModels[Anthropic] {
		t.Errorf("DefaultModel() = %q, want %q", p.DefaultModel(), DefaultModels[Anthropic])
	}
	if s := String(p); s != "Anthropic/"+DefaultModels[Anthropic] {
		t.Errorf("String() = %q", s)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   errors.Code
	}{
		{401, errors.ErrCodeUnauthorized},
		{403, errors.ErrCodeUnauthorized},
		{429, errors.ErrCodeRateLimited},
		{413, errors.ErrCodeRequestTooLong},
		{500, errors.ErrCodeProvider},
		{400, errors.ErrCodeProvider},
	}
	for _, tt := range tests {
		if got := errors.GetCode(statusError("test", tt.status, []byte("boom"))); got != tt.want {
			t.Errorf("statusError(%d) code = %s, want %s", tt.status, got, tt.want)
		}
	}
}
