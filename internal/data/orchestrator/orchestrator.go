// File path: internal/data/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/studyaid/quizmatch/internal/cache"
	"github.com/studyaid/quizmatch/internal/engine"
	"github.com/studyaid/quizmatch/internal/matcher"
	"github.com/studyaid/quizmatch/internal/searchindex"
	"github.com/studyaid/quizmatch/internal/sqlite"
)

type closer interface {
	Close() error
}

// Orchestrator wires together the persistent stores that back the quizmatch
// server and exposes convenience accessors for the API layer.
type Orchestrator struct {
	cfg Config

	catalog *sqlite.Store
	index   searchindex.Index
	cache   *cache.Cache
	engine  *engine.Engine

	closers []closer
}

// New constructs an orchestrator from the provided configuration and optional
// overrides.
func New(ctx context.Context, cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg = applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	settings := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	catalog, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}

	var index searchindex.Index
	switch {
	case settings.index != nil:
		index = settings.index
	case shouldEnableIndex():
		client, err := searchindex.NewFromEnv(ctx)
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("init search index client: %w", err)
		}
		index = client
	}

	var cacheClient *cache.Cache
	switch {
	case settings.cache != nil:
		cacheClient = settings.cache
	case !settings.disableCache:
		cacheClient = cache.NewFromEnv(ctx)
	}

	engineCfg, err := engine.LoadConfig()
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("load engine config: %w", err)
	}
	if settings.engineConfig != nil {
		engineCfg = *settings.engineConfig
	}
	matcherCfg, err := matcher.LoadConfig()
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("load matcher config: %w", err)
	}
	eng := engine.New(catalog, engineCfg,
		engine.WithIndex(index),
		engine.WithCache(cacheClient),
		engine.WithMatcherConfig(matcherCfg),
	)

	orch := &Orchestrator{
		cfg:     cfg,
		catalog: catalog,
		index:   index,
		cache:   cacheClient,
		engine:  eng,
	}
	orch.closers = append(orch.closers, catalog)
	if c, ok := index.(closer); ok && c != nil {
		orch.closers = append(orch.closers, c)
	}
	if cacheClient != nil {
		orch.closers = append(orch.closers, cacheClient)
	}
	return orch, nil
}

// Catalog exposes the SQLite question catalog.
func (o *Orchestrator) Catalog() *sqlite.Store {
	if o == nil {
		return nil
	}
	return o.catalog
}

// Index exposes the optional coarse retrieval index.
func (o *Orchestrator) Index() searchindex.Index {
	if o == nil {
		return nil
	}
	return o.index
}

// Cache exposes the optional Redis cache.
func (o *Orchestrator) Cache() *cache.Cache {
	if o == nil {
		return nil
	}
	return o.cache
}

// Engine exposes the matching engine built over the wired stores.
func (o *Orchestrator) Engine() *engine.Engine {
	if o == nil {
		return nil
	}
	return o.engine
}

// Close releases any resources associated with the orchestrator.
func (o *Orchestrator) Close() error {
	if o == nil {
		return nil
	}
	var err error
	for i := len(o.closers) - 1; i >= 0; i-- {
		closer := o.closers[i]
		if closer == nil {
			continue
		}
		if cerr := closer.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

func shouldEnableIndex() bool {
	keys := []string{
		"QUIZ_INDEX_CONFIG_FILE",
		"QUIZ_INDEX_HOST",
		"QUIZ_INDEX_PORT",
		"QUIZ_INDEX_SCHEME",
		"QUIZ_INDEX_NAME",
		"QUIZ_INDEX_API_KEY",
		"QUIZ_INDEX_COARSE_SIZE",
		"QUIZ_INDEX_TIMEOUT",
		"QUIZ_INDEX_HTTP_MAX_IDLE_CONNS",
		"QUIZ_INDEX_HTTP_MAX_IDLE_PER_HOST",
		"QUIZ_INDEX_HTTP_MAX_CONNS_PER_HOST",
		"QUIZ_INDEX_HTTP_IDLE_CONN_TIMEOUT",
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}
