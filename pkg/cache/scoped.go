package cache

// ScopedKeyer wraps a Keyer with a namespace prefix, e.g. "flowsketch:" when
// a Redis database is shared with other services.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer is replaced by the default one.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RenderKey generates a prefixed render key.
func (k *ScopedKeyer) RenderKey(sourceHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(sourceHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(svgHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(svgHash, opts)
}
