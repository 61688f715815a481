// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"github.com/studyaid/quizmatch/internal/cache"
	"github.com/studyaid/quizmatch/internal/engine"
	"github.com/studyaid/quizmatch/internal/searchindex"
)

type Option func(*options)

type options struct {
	index        searchindex.Index
	cache        *cache.Cache
	disableCache bool
	engineConfig *engine.Config
}

// WithSearchIndex injects a search index implementation. Primarily used in
// tests to supply a fake index.
func WithSearchIndex(index searchindex.Index) Option {
	return func(o *options) {
		o.index = index
	}
}

// WithCache injects a previously constructed cache client.
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithCacheDisabled prevents the orchestrator from dialing Redis even when
// cache environment variables are present.
func WithCacheDisabled() Option {
	return func(o *options) {
		o.disableCache = true
	}
}

// WithEngineConfig overrides the engine configuration loaded from the
// environment.
func WithEngineConfig(cfg engine.Config) Option {
	return func(o *options) {
		copied := cfg
		o.engineConfig = &copied
	}
}
