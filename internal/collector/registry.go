package collector

import (
	"fmt"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/ports"
)

// Registry keeps a mapping from source kinds to their fetchers.
type Registry struct {
	fetchers map[domain.SourceKind]ports.SourceFetcher
}

// NewRegistry builds a registry with the given fetchers registered.
func NewRegistry(fetchers ...ports.SourceFetcher) *Registry {
	r := &Registry{fetchers: map[domain.SourceKind]ports.SourceFetcher{}}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// Register adds or replaces the fetcher for its kind. Nil fetchers are ignored
// so optional adapters (e.g. video without an API key) can be passed through.
func (r *Registry) Register(f ports.SourceFetcher) {
	if f == nil {
		return
	}
	if r.fetchers == nil {
		r.fetchers = map[domain.SourceKind]ports.SourceFetcher{}
	}
	r.fetchers[f.Kind()] = f
}

// Resolve returns the fetcher for kind or an error if none is registered.
func (r *Registry) Resolve(kind domain.SourceKind) (ports.SourceFetcher, error) {
	if r == nil {
		return nil, fmt.Errorf("no fetcher registered for %s sources", kind)
	}
	if f, ok := r.fetchers[kind]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for %s sources", kind)
}
