// Package config loads flowsketch settings.
//
// Settings are resolved in order, later sources winning:
//
//  1. built-in defaults ([Default])
//  2. the TOML file at [Path] ($XDG_CONFIG_HOME/flowsketch/config.toml)
//  3. a .env file in the working directory, if present
//  4. environment variables (FLOWSKETCH_*, GEMINI_API_KEY, ANTHROPIC_API_KEY, AWS_REGION)
//  5. command-line flags, applied by the caller
//
// Variables already set in the process environment take precedence over the
// .env file.
package config

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/matzehuels/flowsketch/pkg/cache"
	"github.com/matzehuels/flowsketch/pkg/env"
	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/llm"
	"github.com/matzehuels/flowsketch/pkg/render"
)

const appName = "flowsketch"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// CacheBackends lists the accepted cache backends.
var CacheBackends = []string{CacheFile, CacheRedis, CacheNone}

// Config holds every setting.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Render   RenderConfig   `toml:"render"`
	Recolor  RecolorConfig  `toml:"recolor"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	UI       UIConfig       `toml:"ui"`
}

// ProviderConfig selects the language model.
type ProviderConfig struct {
	Name    string `toml:"name"`
	Model   string `toml:"model,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Region  string `toml:"region,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
}

// RenderConfig configures the renderers and exports.
type RenderConfig struct {
	// Theme forces a Mermaid theme. Empty follows the host colour scheme.
	Theme      string  `toml:"theme,omitempty"`
	Background string  `toml:"background"`
	Scale      float64 `toml:"scale"`
	OutputDir  string  `toml:"output_dir,omitempty"`

	MermaidBin      string `toml:"mermaid_bin,omitempty"`
	PuppeteerConfig string `toml:"puppeteer_config,omitempty"`
}

// RecolorConfig configures the directive patcher.
type RecolorConfig struct {
	// SpliceMalformed replaces an unparseable init directive in place instead
	// of keeping it below the new one.
	SpliceMalformed bool `toml:"splice_malformed"`
}

// CacheConfig selects the render cache.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir,omitempty"`
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`
	Prefix        string `toml:"prefix,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// UIConfig configures the interactive shell.
type UIConfig struct {
	// Theme is auto, light or dark.
	Theme  string `toml:"theme"`
	Locale string `toml:"locale,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Provider: ProviderConfig{Name: string(llm.Gemini)},
		Render: RenderConfig{
			Background: render.DefaultBackground,
			Scale:      render.DefaultScale,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Prefix:  appName,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			MaxBodyBytes: 32 << 20,
		},
		UI: UIConfig{Theme: env.ThemeAuto},
	}
}

// Dir returns the configuration directory: $XDG_CONFIG_HOME/flowsketch or
// ~/.config/flowsketch.
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// Path returns the default configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load resolves settings from the file at path, .env and the environment.
// An empty path means [Path], which may be missing; an explicit path must
// exist.
func Load(path string) (Config, error) {
	return load(path, ".env", os.LookupEnv)
}

func load(path, dotenv string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "locate config file")
		}
		path = p
	}
	if err := cfg.decodeFile(path, explicit); err != nil {
		return cfg, err
	}

	vars, err := godotenv.Read(dotenv)
	if err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", dotenv)
	}
	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	})
	return cfg, nil
}

func (c *Config) decodeFile(path string, mustExist bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if mustExist {
			return errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s: failed to parse TOML", path)
	}
	return nil
}

// ApplyEnv overrides settings from environment variables looked up with
// lookup. Provider API keys fall back to the provider's conventional
// variable when FLOWSKETCH_API_KEY is not set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("FLOWSKETCH_PROVIDER", &c.Provider.Name)
	str("FLOWSKETCH_MODEL", &c.Provider.Model)
	str("FLOWSKETCH_API_KEY", &c.Provider.APIKey)
	str("AWS_REGION", &c.Provider.Region)
	str("FLOWSKETCH_LOCALE", &c.UI.Locale)
	str("FLOWSKETCH_THEME", &c.UI.Theme)
	str("FLOWSKETCH_CACHE", &c.Cache.Backend)
	str("FLOWSKETCH_CACHE_DIR", &c.Cache.Dir)
	str("FLOWSKETCH_REDIS_ADDR", &c.Cache.RedisAddr)
	str("FLOWSKETCH_ADDR", &c.Server.Addr)

	c.ResolveAPIKey(lookup)
}

// ResolveAPIKey fills an empty provider API key from FLOWSKETCH_API_KEY or the
// provider's conventional variable.
func (c *Config) ResolveAPIKey(lookup func(string) (string, bool)) {
	if c.Provider.APIKey != "" {
		return
	}
	keys := []string{"FLOWSKETCH_API_KEY"}
	name, _ := llm.ParseName(c.Provider.Name)
	switch name {
	case llm.Gemini:
		keys = append(keys, "GEMINI_API_KEY")
	case llm.Anthropic:
		keys = append(keys, "ANTHROPIC_API_KEY")
	}
	for _, key := range keys {
		if v, ok := lookup(key); ok && v != "" {
			c.Provider.APIKey = v
			return
		}
	}
}

// Validate checks every setting that has a fixed set of values.
func (c *Config) Validate() error {
	if _, err := llm.ParseName(c.Provider.Name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "provider.name")
	}
	if err := env.ValidateThemeSetting(c.UI.Theme); err != nil {
		return err
	}
	if c.UI.Locale != "" {
		if _, err := language.Parse(c.UI.Locale); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "ui.locale %q", c.UI.Locale)
		}
	}
	if c.Render.Theme != "" && !slices.Contains(render.Themes, c.Render.Theme) {
		return errors.New(errors.ErrCodeInvalidConfig, "render.theme %q (expected one of %s)", c.Render.Theme, strings.Join(render.Themes, ", "))
	}
	if err := render.ValidateScale(c.Render.Scale); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "render.scale")
	}
	if !slices.Contains(CacheBackends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend %q (expected one of %s)", c.Cache.Backend, strings.Join(CacheBackends, ", "))
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_body_bytes must be positive")
	}
	return nil
}

// LLM returns the provider configuration.
func (c *Config) LLM() llm.Config {
	name, _ := llm.ParseName(c.Provider.Name)
	return llm.Config{
		Provider: name,
		APIKey:   c.Provider.APIKey,
		Region:   c.Provider.Region,
		Model:    c.Provider.Model,
		BaseURL:  c.Provider.BaseURL,
	}
}

// Redis returns the Redis cache configuration.
func (c *Config) Redis() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
	}
}

// Mermaid returns the mmdc configuration.
func (c *Config) Mermaid() render.MermaidConfig {
	return render.MermaidConfig{
		Bin:             c.Render.MermaidBin,
		PuppeteerConfig: c.Render.PuppeteerConfig,
	}
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	c.Provider.APIKey = mask(c.Provider.APIKey)
	c.Cache.RedisPassword = mask(c.Cache.RedisPassword)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
