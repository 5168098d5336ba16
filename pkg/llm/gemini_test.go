package llm

import (
	"reflect"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiContents(t *testing.T) {
	contents := geminiContents([]Message{
		{Role: RoleUser, Text: "sketch", Attachment: &Attachment{Data: []byte{0xff}, MIMEType: "image/jpeg"}},
		{Role: RoleModel, Text: "done"},
		{Role: RoleUser},
	})
	if len(contents) != 3 {
		t.Fatalf("len = %d, want 3", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) || len(contents[0].Parts) != 2 {
		t.Errorf("first content = %+v", contents[0])
	}
	if contents[0].Parts[0].InlineData == nil || contents[0].Parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("attachment part = %+v", contents[0].Parts[0])
	}
	if contents[1].Role != string(genai.RoleModel) || contents[1].Parts[0].Text != "done" {
		t.Errorf("second content = %+v", contents[1])
	}
	if len(contents[2].Parts) != 1 {
		t.Errorf("empty message should still carry a text part: %+v", contents[2])
	}
}

func TestGeminiConfig(t *testing.T) {
	temp := 0.5
	cfg := geminiConfig(&Request{
		System:      "sys",
		MaxTokens:   100,
		Temperature: &temp,
		Schema: &Schema{Properties: []Property{
			{Name: "kind", Enum: []string{"diagram", "message"}},
			{Name: "content"},
		}},
	})

	if cfg.MaxOutputTokens != 100 {
		t.Errorf("MaxOutputTokens = %d", cfg.MaxOutputTokens)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.5 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "sys" {
		t.Errorf("SystemInstruction = %+v", cfg.SystemInstruction)
	}
	if cfg.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q", cfg.ResponseMIMEType)
	}
	s := cfg.ResponseSchema
	if s.Type != genai.TypeObject || !reflect.DeepEqual(s.Required, []string{"kind", "content"}) {
		t.Errorf("schema = %+v", s)
	}
	if !reflect.DeepEqual(s.Properties["kind"].Enum, []string{"diagram", "message"}) {
		t.Errorf("kind enum = %v", s.Properties["kind"].Enum)
	}
}

func TestGeminiConfigPlain(t *testing.T) {
	cfg := geminiConfig(&Request{})
	if cfg.ResponseSchema != nil || cfg.ResponseMIMEType != "" || cfg.SystemInstruction != nil {
		t.Errorf("plain config = %+v", cfg)
	}
	if cfg.MaxOutputTokens != DefaultMaxTokens {
		t.Errorf("MaxOutputTokens = %d, want %d", cfg.MaxOutputTokens, DefaultMaxTokens)
	}
}
