// File path: internal/data/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/studyaid/quizmatch/internal/engine"
	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/searchindex"
)

type stubIndex struct {
	searches int
}

func (s *stubIndex) Available() bool { return true }

func (s *stubIndex) EnsureIndex(ctx context.Context) error { return nil }

func (s *stubIndex) IndexQuestion(ctx context.Context, doc searchindex.Doc) error { return nil }

func (s *stubIndex) BulkIndex(ctx context.Context, docs []searchindex.Doc) error { return nil }

func (s *stubIndex) Delete(ctx context.Context, id string) error { return nil }
func (s *stubIndex) Stats(ctx context.Context) (searchindex.Stats, error) {
	return searchindex.Stats{Available: true}, nil
}

func (s *stubIndex) Search(ctx context.Context, query searchindex.SearchQuery) ([]searchindex.Hit, error) {
	s.searches++
	return nil, nil
}

func TestNewWiresStores(t *testing.T) {
	ctx := context.Background()
	cfg := Config{SQLitePath: filepath.Join(t.TempDir(), "quizmatch.db")}

	orch, err := New(ctx, cfg, WithCacheDisabled())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer orch.Close()

	if orch.Catalog() == nil {
		t.Fatal("expected catalog store")
	}
	if orch.Engine() == nil {
		t.Fatal("expected engine")
	}
	if orch.Index() != nil {
		t.Fatal("expected no index without configuration")
	}
}

func TestNewInjectedIndexReachesEngine(t *testing.T) {
	ctx := context.Background()
	cfg := Config{SQLitePath: filepath.Join(t.TempDir(), "quizmatch.db")}
	index := &stubIndex{}

	orch, err := New(ctx, cfg, WithSearchIndex(index), WithCacheDisabled())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer orch.Close()

	if orch.Index() != index {
		t.Fatal("expected injected index")
	}
	query := question.QueryQuestion{QuestionHTML: "<p>Thuật toán nào sắp xếp ổn định?</p>"}
	result, err := orch.Engine().MatchSingle(ctx, query, engine.Options{})
	if err != nil {
		t.Fatalf("MatchSingle: %v", err)
	}
	if result.HasMatch {
		t.Fatal("expected no match from empty index")
	}
	if index.searches != 1 {
		t.Fatalf("expected one coarse search, got %d", index.searches)
	}
}

func TestNewAppliesMatcherEnvOverrides(t *testing.T) {
	t.Setenv("QUIZ_MATCH_EXACT_ANSWER_CONFIDENCE", "0.85")
	ctx := context.Background()
	cfg := Config{SQLitePath: filepath.Join(t.TempDir(), "quizmatch.db")}

	orch, err := New(ctx, cfg, WithCacheDisabled())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer orch.Close()

	course, err := orch.Catalog().EnsureCourse(ctx, "CS101", "")
	if err != nil {
		t.Fatalf("ensure course: %v", err)
	}
	if _, err := orch.Catalog().UpsertQuestion(ctx, question.StoredQuestion{
		CourseID:     course.ID,
		QuestionHTML: "May tinh dien tu dau tien la gi?",
		AnswersHTML:  []string{"ENIAC", "UNIVAC"},
	}); err != nil {
		t.Fatalf("upsert question: %v", err)
	}

	result, err := orch.Engine().MatchSingle(ctx, question.QueryQuestion{
		QuestionHTML: "May tinh dien tu dau tien ten gi?",
		AnswersHTML:  []string{"ENIAC"},
	}, engine.Options{SkipCoarse: true})
	if err != nil {
		t.Fatalf("MatchSingle: %v", err)
	}
	if !result.HasMatch || result.MatchType != question.MatchExact {
		t.Fatalf("expected answer-exact match: %+v", result)
	}
	if result.ConfidenceScore != 0.85 {
		t.Fatalf("confidence = %v, want the overridden 0.85", result.ConfidenceScore)
	}
}

func TestNewRejectsInvalidMatcherEnv(t *testing.T) {
	t.Setenv("QUIZ_MATCH_KEYWORD_CAP", "1.5")
	_, err := New(context.Background(), Config{
		SQLitePath: filepath.Join(t.TempDir(), "quizmatch.db"),
	}, WithCacheDisabled())
	if err == nil {
		t.Fatal("expected config error for out-of-range threshold")
	}
}

func TestNilOrchestratorAccessors(t *testing.T) {
	var orch *Orchestrator
	if orch.Catalog() != nil || orch.Index() != nil || orch.Cache() != nil || orch.Engine() != nil {
		t.Fatal("nil orchestrator should return nil collaborators")
	}
	if err := orch.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("QUIZ_CATALOG_PATH", "/tmp/custom.db")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SQLitePath != "/tmp/custom.db" {
		t.Fatalf("unexpected sqlite path: %q", cfg.SQLitePath)
	}
}
