package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/buildinfo"
	"github.com/matzehuels/flowsketch/pkg/errors"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*AnthropicClient)(nil)

type anthropicRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient(cfg Config) (*AnthropicClient, error) {
	if err := requireKey(Anthropic, cfg.APIKey, "ANTHROPIC_API_KEY"); err != nil {
		return nil, err
	}
	c := &AnthropicClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}
	if c.model == "" {
		c.model = DefaultModels[Anthropic]
	}
	if c.baseURL == "" {
		c.baseURL = anthropicBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c, nil
}

// Name implements Provider.
func (c *AnthropicClient) Name() string { return "Anthropic" }

// DefaultModel implements Provider.
func (c *AnthropicClient) DefaultModel() string { return c.model }

// Generate implements Provider.
func (c *AnthropicClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       modelOr(req, c.model),
		MaxTokens:   req.maxTokens(),
		System:      req.System + schemaInstruction(req.Schema),
		Messages:    claudeMessages(req.Messages),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent())
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "call anthropic")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read anthropic response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("anthropic", resp.StatusCode, respBody)
	}
	return parseClaudeResponse("anthropic", respBody)
}
