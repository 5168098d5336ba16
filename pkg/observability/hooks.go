// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks; the default hooks do
// nothing. Binaries register implementations at startup, e.g. [LogHooks] when
// running with --verbose, or an adapter for a metrics backend.
//
//	observability.SetInferenceHooks(observability.NewLogHooks(logger))
//
//	start := time.Now()
//	observability.Inference().OnRequestStart(ctx, provider, model)
//	resp, err := p.Generate(ctx, req)
//	observability.Inference().OnRequestComplete(ctx, provider, model, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// InferenceHooks receives events from the inference gateway.
type InferenceHooks interface {
	OnRequestStart(ctx context.Context, provider, model string)
	OnRequestComplete(ctx context.Context, provider, model string, duration time.Duration, err error)

	// OnFallback records that a localized fallback message was returned
	// instead of a model reply.
	OnFallback(ctx context.Context, reason string)
}

// RenderHooks receives events from renderers and exporters.
type RenderHooks interface {
	OnRenderStart(ctx context.Context, engine string)
	OnRenderComplete(ctx context.Context, engine string, duration time.Duration, err error)
	OnExport(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// CacheHooks receives events from cache lookups. stage is "render" or
// "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, stage string)
	OnCacheMiss(ctx context.Context, stage string)
	OnCacheSet(ctx context.Context, stage string, size int)
}

// NoopInferenceHooks is a no-op implementation of InferenceHooks.
type NoopInferenceHooks struct{}

func (NoopInferenceHooks) OnRequestStart(context.Context, string, string) {}
func (NoopInferenceHooks) OnRequestComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopInferenceHooks) OnFallback(context.Context, string) {}

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnRenderStart(context.Context, string)                          {}
func (NoopRenderHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}
func (NoopRenderHooks) OnExport(context.Context, string, int, time.Duration, error)    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	hooksMu        sync.RWMutex
	inferenceHooks InferenceHooks = NoopInferenceHooks{}
	renderHooks    RenderHooks    = NoopRenderHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
)

// SetInferenceHooks registers inference hooks. nil is ignored.
func SetInferenceHooks(h InferenceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		inferenceHooks = h
	}
}

// SetRenderHooks registers render hooks. nil is ignored.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Inference returns the registered inference hooks.
func Inference() InferenceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return inferenceHooks
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores the no-op hooks.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	inferenceHooks = NoopInferenceHooks{}
	renderHooks = NoopRenderHooks{}
	cacheHooks = NoopCacheHooks{}
}
