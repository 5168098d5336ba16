package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by writing debug-level log lines.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks creates hooks that log through logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{Logger: logger}
}

// Register installs h for all hook categories.
func (h *LogHooks) Register() {
	SetInferenceHooks(h)
	SetRenderHooks(h)
	SetCacheHooks(h)
}

func (h *LogHooks) OnRequestStart(_ context.Context, provider, model string) {
	h.Logger.Debug("inference start", "provider", provider, "model", model)
}

func (h *LogHooks) OnRequestComplete(_ context.Context, provider, model string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("inference failed", "provider", provider, "model", model, "took", d.Round(time.Millisecond), "err", err)
		return
	}
	h.Logger.Debug("inference done", "provider", provider, "model", model, "took", d.Round(time.Millisecond))
}

func (h *LogHooks) OnFallback(_ context.Context, reason string) {
	h.Logger.Debug("fallback reply", "reason", reason)
}

func (h *LogHooks) OnRenderStart(_ context.Context, engine string) {
	h.Logger.Debug("render start", "engine", engine)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, engine string, d time.Duration, err error) {
	h.Logger.Debug("render done", "engine", engine, "took", d.Round(time.Millisecond), "err", err)
}

func (h *LogHooks) OnExport(_ context.Context, format string, size int, d time.Duration, err error) {
	h.Logger.Debug("export done", "format", format, "bytes", size, "took", d.Round(time.Millisecond), "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, stage string) {
	h.Logger.Debug("cache hit", "stage", stage)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, stage string) {
	h.Logger.Debug("cache miss", "stage", stage)
}

func (h *LogHooks) OnCacheSet(_ context.Context, stage string, size int) {
	h.Logger.Debug("cache set", "stage", stage, "bytes", size)
}

var (
	_ InferenceHooks = (*LogHooks)(nil)
	_ RenderHooks    = (*LogHooks)(nil)
	_ CacheHooks     = (*LogHooks)(nil)
)
