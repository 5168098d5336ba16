package llm

import (
	"context"

	"google.golang.org/genai"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// GeminiClient calls the Gemini API through the genai SDK. It is the only
// provider with native structured output; a request Schema becomes the
// response schema.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ Provider = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if err := requireKey(Gemini, cfg.APIKey, "GEMINI_API_KEY"); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "create gemini client")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModels[Gemini]
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Name implements Provider.
func (c *GeminiClient) Name() string { return "Google Gemini" }

// DefaultModel implements Provider.
func (c *GeminiClient) DefaultModel() string { return c.model }

// Generate implements Provider.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := modelOr(req, c.model)
	resp, err := c.client.Models.GenerateContent(ctx, model, geminiContents(req.Messages), geminiConfig(req))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeProvider, err, "gemini generate")
	}

	text := resp.Text()
	if text == "" {
		return nil, errors.New(errors.ErrCodeBadResponse, "gemini returned no text content")
	}
	out := &Response{Text: text, Model: model}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = int(u.PromptTokenCount)
		out.OutputTokens = int(u.CandidatesTokenCount)
	}
	return out, nil
}

func geminiContents(msgs []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		if a := m.Attachment; a != nil {
			parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
		}
		if m.Text != "" || len(parts) == 0 {
			parts = append(parts, genai.NewPartFromText(m.Text))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

func geminiConfig(req *Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.maxTokens()),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = geminiSchema(req.Schema)
	}
	return cfg
}

func geminiSchema(s *Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Properties)),
	}
	for _, p := range s.Properties {
		prop := &genai.Schema{Type: genai.TypeString, Description: p.Description}
		if len(p.Enum) > 0 {
			prop.Format = "enum"
			prop.Enum = p.Enum
		}
		out.Properties[p.Name] = prop
		out.Required = append(out.Required, p.Name)
		out.PropertyOrdering = append(out.PropertyOrdering, p.Name)
	}
	return out
}
