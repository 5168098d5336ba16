package llm

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/matzehuels/flowsketch/pkg/errors"
)

// The Anthropic Messages API and Claude on Bedrock share the message and
// response shapes below.

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeBlock struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// claudeMessages converts messages to Claude content blocks. Attachments
// precede the text of their turn, images as image blocks and PDFs as
// document blocks.
func claudeMessages(msgs []Message) []claudeMessage {
	out := make([]claudeMessage, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == RoleModel {
			role = "assistant"
		}
		var blocks []claudeBlock
		if a := m.Attachment; a != nil {
			kind := "image"
			if a.MIMEType == "application/pdf" {
				kind = "document"
			}
			blocks = append(blocks, claudeBlock{
				Type: kind,
				Source: &claudeSource{
					Type:      "base64",
					MediaType: a.MIMEType,
					Data:      base64.StdEncoding.EncodeToString(a.Data),
				},
			})
		}
		if m.Text != "" || len(blocks) == 0 {
			blocks = append(blocks, claudeBlock{Type: "text", Text: m.Text})
		}
		out = append(out, claudeMessage{Role: role, Content: blocks})
	}
	return out
}

// schemaInstruction spells out a Schema for models without structured output.
func schemaInstruction(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nRespond with a single JSON object and nothing else. Fields (all strings, all required):")
	for _, p := range s.Properties {
		b.WriteString("\n- ")
		b.WriteString(p.Name)
		if len(p.Enum) > 0 {
			b.WriteString(" (one of: ")
			b.WriteString(strings.Join(p.Enum, ", "))
			b.WriteString(")")
		}
		if p.Description != "" {
			b.WriteString(": ")
			b.WriteString(p.Description)
		}
	}
	return b.String()
}

func parseClaudeResponse(provider string, body []byte) (*Response, error) {
	var resp claudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBadResponse, err, "parse %s response", provider)
	}
	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.New(errors.ErrCodeBadResponse, "%s returned no text content (stop_reason: %s)", provider, resp.StopReason)
	}
	return &Response{
		Text:         text.String(),
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
