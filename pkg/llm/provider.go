// Package llm contains clients for the hosted language models that generate
// diagram source.
//
// Every client implements [Provider]. [NewProvider] builds one from a
// [Config], accepting the aliases google, claude and aws.
//
// Clients make exactly one request per Generate call and never retry; the
// caller's context is the only timeout.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// Provider generates a reply for a conversation.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name returns the provider name for display.
	Name() string

	// DefaultModel returns the model used when a request names none.
	DefaultModel() string
}

// Name identifies a provider implementation.
type Name string

const (
	Gemini    Name = "gemini"
	Anthropic Name = "anthropic"
	Bedrock   Name = "bedrock"
)

// Names lists the supported providers.
var Names = []Name{Gemini, Anthropic, Bedrock}

// ParseName resolves a provider name or alias.
func ParseName(s string) (Name, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return Gemini, nil
	case "anthropic", "claude":
		return Anthropic, nil
	case "bedrock", "aws":
		return Bedrock, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown provider %q (expected gemini, anthropic or bedrock)", s)
}

// Default models per provider.
var DefaultModels = map[Name]string{
	Gemini:    "gemini-2.5-flash",
	Anthropic: "claude-sonnet-4-5-20250929",
	Bedrock:   "global.anthropic.claude-sonnet-4-5-20250929-v1:0",
}

// Config selects and configures a provider.
type Config struct {
	Provider Name
	APIKey   string // gemini, anthropic
	Region   string // bedrock
	Model    string

	// BaseURL overrides the API endpoint (anthropic).
	BaseURL string

	// HTTPClient is used for HTTP based providers. Defaults to a client with
	// no timeout; requests are bounded by their context.
	HTTPClient *http.Client
}

// NewProvider creates the provider named in cfg.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModels[cfg.Provider]
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	switch cfg.Provider {
	case Gemini:
		return NewGeminiClient(ctx, cfg)
	case Anthropic:
		return NewAnthropicClient(cfg)
	case Bedrock:
		return NewBedrockClient(ctx, cfg)
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown provider %q", cfg.Provider)
}

// statusError classifies a non-2xx API response.
func statusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	code := errors.ErrCodeProvider
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = errors.ErrCodeUnauthorized
	case status == http.StatusTooManyRequests:
		code = errors.ErrCodeRateLimited
	case status == http.StatusRequestEntityTooLarge:
		code = errors.ErrCodeRequestTooLong
	}
	return errors.New(code, "%s API error (status %d): %s", provider, status, msg)
}

func modelOr(req *Request, def string) string {
	if req.Model != "" {
		return req.Model
	}
	return def
}

func requireKey(provider Name, key, env string) error {
	if key == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "%s API key required (set %s or FLOWSKETCH_API_KEY)", provider, env)
	}
	return nil
}

// String formats a provider for logs.
func String(p Provider) string {
	return fmt.Sprintf("%s/%s", p.Name(), p.DefaultModel())
}
