// Package cache stores rendered diagram artifacts.
//
// Rendering shells out to external tools and is by far the slowest step after
// inference, so the pipeline caches SVG output and derived PNG/PDF exports
// keyed by a hash of the diagram source and the render options.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under the user cache directory (CLI)
//   - [RedisCache]: shared cache for several API server instances
//   - [NullCache]: disables caching
//
// # Keys
//
// Keys are built by a [Keyer] so that every caller derives the same key for the
// same inputs. [ScopedKeyer] adds a namespace prefix, which the Redis backend
// uses to share a database with other applications.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the cached value. A miss is reported by ok=false with a nil
	// error; errors are reserved for backend failures.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys for pipeline stages.
type Keyer interface {
	// RenderKey identifies the SVG produced for a source hash.
	RenderKey(sourceHash string, opts RenderKeyOpts) string

	// ArtifactKey identifies an export derived from a rendered SVG.
	ArtifactKey(svgHash string, opts ArtifactKeyOpts) string
}

// RenderKeyOpts are the render options that change the SVG output.
type RenderKeyOpts struct {
	Engine     string `json:"engine"`
	Theme      string `json:"theme"`
	Background string `json:"background"`
}

// ArtifactKeyOpts are the export options that change an artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
}

// DefaultKeyer builds keys of the form "<stage>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(sourceHash string, opts RenderKeyOpts) string {
	return hashKey("render", sourceHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(svgHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", svgHash, opts)
}

var _ Keyer = DefaultKeyer{}
