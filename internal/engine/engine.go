// File path: internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/studyaid/quizmatch/internal/cache"
	"github.com/studyaid/quizmatch/internal/matcher"
	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/searchindex"
)

// QuestionStore is the persistence contract the engine consumes. The sqlite
// store satisfies it; tests substitute fakes.
type QuestionStore interface {
	QuestionsByCourse(ctx context.Context, courseID string, limit, offset int) ([]question.StoredQuestion, error)
	QuestionByID(ctx context.Context, id string) (question.StoredQuestion, error)
	UpsertQuestion(ctx context.Context, record question.StoredQuestion) (question.StoredQuestion, error)
	MergeQuestion(ctx context.Context, id string, correctAnswers []string, explanation string) (question.StoredQuestion, error)
	SearchQuestions(ctx context.Context, courseID, term string, limit int) ([]question.StoredQuestion, error)
	AllQuestions(ctx context.Context, limit, offset int) ([]question.StoredQuestion, error)
	CourseCodeFor(ctx context.Context, courseID string) (string, error)
}

// Config holds the engine-level knobs.
type Config struct {
	DefaultThreshold float64
	CoarseSize       int
	MaxResults       int
	Workers          int
}

func (c *Config) applyDefaults() {
	if c.DefaultThreshold <= 0 || c.DefaultThreshold > 1 {
		c.DefaultThreshold = 0.7
	}
	if c.CoarseSize <= 0 {
		c.CoarseSize = 20
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 5
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// LoadConfig reads engine overrides from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if raw := strings.TrimSpace(os.Getenv("QUIZ_ENGINE_THRESHOLD")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse QUIZ_ENGINE_THRESHOLD: %w", err)
		}
		cfg.DefaultThreshold = value
	}
	ints := []struct {
		env string
		dst *int
	}{
		{"QUIZ_ENGINE_COARSE_SIZE", &cfg.CoarseSize},
		{"QUIZ_ENGINE_MAX_RESULTS", &cfg.MaxResults},
		{"QUIZ_ENGINE_WORKERS", &cfg.Workers},
	}
	for _, o := range ints {
		raw := strings.TrimSpace(os.Getenv(o.env))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", o.env, err)
		}
		if value > 0 {
			*o.dst = value
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Engine runs the two-stage matching pipeline and the ingestion dedup path.
type Engine struct {
	store   QuestionStore
	index   searchindex.Index
	cache   *cache.Cache
	ranker  *matcher.Ranker
	decider *matcher.Decider
	cfg     Config
}

type Option func(*Engine)

func WithIndex(index searchindex.Index) Option {
	return func(e *Engine) { e.index = index }
}

func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithMatcherConfig(cfg matcher.Config) Option {
	return func(e *Engine) {
		e.ranker = matcher.NewRanker(cfg)
		e.decider = matcher.NewDecider(cfg)
	}
}

func New(store QuestionStore, cfg Config, opts ...Option) *Engine {
	cfg.applyDefaults()
	e := &Engine{
		store:   store,
		cfg:     cfg,
		ranker:  matcher.NewRanker(matcher.DefaultConfig()),
		decider: matcher.NewDecider(matcher.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Options tune one matching call. A zero Threshold means "use the engine
// default"; out-of-range values are rejected before any work starts.
type Options struct {
	Threshold     float64
	MaxResults    int
	CourseCode    string
	SkipCoarse    bool
	FuzzyFallback bool
}

// ValidationError rejects a call before processing begins. It is the only
// error class that is fatal to a matching call.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e *Engine) resolveOptions(opts Options) (Options, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return Options{}, validationErrorf("threshold %v outside [0,1]", opts.Threshold)
	}
	if opts.Threshold == 0 {
		opts.Threshold = e.cfg.DefaultThreshold
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = e.cfg.MaxResults
	}
	return opts, nil
}
