package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/llm"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[provider]
name = "anthropic"
model = "claude-from-file"

[render]
scale = 3.0

[recolor]
splice_malformed = true

[cache]
dir = "/srv/flowsketch"

[ui]
theme = "dark"
locale = "de"
`)
	dotenv := filepath.Join(dir, ".env")
	writeFile(t, dotenv, "FLOWSKETCH_MODEL=claude-from-dotenv\nANTHROPIC_API_KEY=sk-dotenv\nFLOWSKETCH_LOCALE=fr\n")

	cfg, err := load(path, dotenv, mapEnv(map[string]string{"FLOWSKETCH_LOCALE": "es", "FLOWSKETCH_CACHE_DIR": "/run/flowsketch"}))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"provider from file", cfg.Provider.Name, "anthropic"},
		{"model from dotenv", cfg.Provider.Model, "claude-from-dotenv"},
		{"provider key from dotenv", cfg.Provider.APIKey, "sk-dotenv"},
		{"locale from env beats dotenv", cfg.UI.Locale, "es"},
		{"scale from file", cfg.Render.Scale, 3.0},
		{"splice from file", cfg.Recolor.SpliceMalformed, true},
		{"theme from file", cfg.UI.Theme, "dark"},
		{"cache dir from env beats file", cfg.Cache.Dir, "/run/flowsketch"},
		{"default kept", cfg.Cache.Backend, CacheFile},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := load("", filepath.Join(dir, ".env"), noEnv)
	if err != nil {
		t.Fatalf("missing default file should be ignored: %v", err)
	}
	if cfg.Provider.Name != string(llm.Gemini) {
		t.Errorf("Provider.Name = %q, want default", cfg.Provider.Name)
	}

	_, err = load(filepath.Join(dir, "nope.toml"), "", noEnv)
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("explicit missing file err = %v, want file not found", err)
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[provider\nname=")
	if _, err := load(path, "", noEnv); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("load() err = %v, want invalid config", err)
	}
}

func TestApplyEnvKeyFallback(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"gemini key", map[string]string{"GEMINI_API_KEY": "g"}, "g"},
		{"explicit wins", map[string]string{"GEMINI_API_KEY": "g", "FLOWSKETCH_API_KEY": "f"}, "f"},
		{"anthropic key", map[string]string{"FLOWSKETCH_PROVIDER": "claude", "ANTHROPIC_API_KEY": "a", "GEMINI_API_KEY": "g"}, "a"},
		{"bedrock ignores keys", map[string]string{"FLOWSKETCH_PROVIDER": "bedrock", "GEMINI_API_KEY": "g"}, ""},
		{"empty value ignored", map[string]string{"FLOWSKETCH_API_KEY": "", "GEMINI_API_KEY": "g"}, "g"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ApplyEnv(mapEnv(tt.vars))
			if cfg.Provider.APIKey != tt.want {
				t.Errorf("APIKey = %q, want %q", cfg.Provider.APIKey, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"provider", func(c *Config) { c.Provider.Name = "openai" }},
		{"ui theme", func(c *Config) { c.UI.Theme = "sepia" }},
		{"locale", func(c *Config) { c.UI.Locale = "not a locale" }},
		{"render theme", func(c *Config) { c.Render.Theme = "solarized" }},
		{"scale", func(c *Config) { c.Render.Scale = 0 }},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis addr", func(c *Config) { c.Cache.Backend = CacheRedis }},
		{"body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() = %v, want invalid config", err)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	cfg := Default()
	cfg.Provider = ProviderConfig{Name: "aws", Region: "eu-west-1", Model: "m"}
	cfg.Cache.RedisAddr = "localhost:6379"
	cfg.Render.MermaidBin = "/opt/mmdc"

	if l := cfg.LLM(); l.Provider != llm.Bedrock || l.Region != "eu-west-1" || l.Model != "m" {
		t.Errorf("LLM() = %+v", l)
	}
	if r := cfg.Redis(); r.Addr != "localhost:6379" {
		t.Errorf("Redis() = %+v", r)
	}
	if m := cfg.Mermaid(); m.Bin != "/opt/mmdc" {
		t.Errorf("Mermaid() = %+v", m)
	}
}

func TestRedactedEncode(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "sk-ant-1234567890"

	var buf bytes.Buffer
	if err := cfg.Redacted().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "1234567890") {
		t.Errorf("Encode() leaked secret: %s", out)
	}
	if !strings.Contains(out, `api_key = "sk-a****"`) {
		t.Errorf("Encode() missing masked key: %s", out)
	}
	if cfg.Provider.APIKey != "sk-ant-1234567890" {
		t.Error("Redacted() modified the original")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	p, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/xdg", "flowsketch", "config.toml"); p != want {
		t.Errorf("Path() = %q, want %q", p, want)
	}
}
