// File path: internal/engine/match_test.go
package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/searchindex"
)

func newTestEngine(store *fakeStore, index *fakeIndex) *Engine {
	return New(store, Config{Workers: 2}, WithIndex(index))
}

func TestMatchSingleExactVietnamese(t *testing.T) {
	store := newFakeStore()
	stored := store.add(question.StoredQuestion{
		CourseID:           "course-1",
		QuestionHTML:       "<p>Chức năng của thiết bị đầu vào?</p>",
		AnswersHTML:        []string{"Nhập và mã hoá dữ liệu", "Nhập dữ liệu"},
		CorrectAnswersHTML: []string{"Nhập và mã hoá dữ liệu"},
	})
	index := &fakeIndex{hits: []searchindex.Hit{
		{
			ID:           stored.ID,
			Score:        8.2,
			CourseCode:   "CS101",
			QuestionText: "chuc nang cua thiet bi dau vao ?",
			AnswersText:  "nhap va ma hoa du lieu|nhap du lieu",
		},
	}}
	eng := newTestEngine(store, index)

	result, err := eng.MatchSingle(context.Background(), question.QueryQuestion{
		QuestionHTML: "Chức năng của thiết bị đầu vào?",
		AnswersHTML:  []string{"Nhập và mã hoá dữ liệu", "Nhập dữ liệu"},
	}, Options{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !result.HasMatch {
		t.Fatal("expected a match")
	}
	if result.MatchType != question.MatchExact {
		t.Fatalf("matchType = %s, want exact", result.MatchType)
	}
	if result.ConfidenceScore < 0.9 {
		t.Fatalf("confidence = %v, want >= 0.9", result.ConfidenceScore)
	}
	if result.BestMatch == nil || len(result.BestMatch.CorrectAnswersHTML) == 0 {
		t.Fatalf("correct answers not propagated: %+v", result.BestMatch)
	}
}

func TestMatchSingleNoLexicalOverlap(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{hits: []searchindex.Hit{
		{ID: "q-9", QuestionText: "giao thuc truyen thu dien tu", AnswersText: "smtp|pop3"},
	}}
	eng := newTestEngine(store, index)
	result, err := eng.MatchSingle(context.Background(), question.QueryQuestion{
		QuestionHTML: "Định nghĩa hệquản trị cơ sở dữ liệu quan hệ",
	}, Options{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if result.HasMatch {
		t.Fatalf("unexpected match: %+v", result.BestMatch)
	}
	if len(result.AllMatches) != 0 {
		t.Fatalf("below-threshold candidates leaked into allMatches: %d", len(result.AllMatches))
	}
	if result.MatchType != question.MatchNone {
		t.Fatalf("matchType = %q, want none", result.MatchType)
	}
}

func TestMatchSingleIndexDownDegrades(t *testing.T) {
	store := newFakeStore()
	index := &fakeIndex{searchErr: errors.New("connection refused")}
	eng := newTestEngine(store, index)
	result, err := eng.MatchSingle(context.Background(), question.QueryQuestion{
		QuestionHTML: "Bất kỳ câu hỏi nào",
	}, Options{})
	if err != nil {
		t.Fatalf("degraded index must not surface an error, got %v", err)
	}
	if result.HasMatch || len(result.AllMatches) != 0 {
		t.Fatalf("degraded index should yield a no-match result: %+v", result)
	}
}

func TestMatchSingleFuzzyFallbackUsesStore(t *testing.T) {
	store := newFakeStore()
	store.add(question.StoredQuestion{
		CourseID:           "course-1",
		QuestionHTML:       "Chức năng của thiết bị đầu vào?",
		AnswersHTML:        []string{"Nhập dữ liệu"},
		CorrectAnswersHTML: []string{"Nhập dữ liệu"},
	})
	index := &fakeIndex{searchErr: errors.New("index down")}
	eng := newTestEngine(store, index)
	result, err := eng.MatchSingle(context.Background(), question.QueryQuestion{
		QuestionHTML: "Chức năng của thiết bị đầu vào?",
		AnswersHTML:  []string{"Nhập dữ liệu"},
	}, Options{FuzzyFallback: true})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !result.HasMatch || result.MatchType != question.MatchExact {
		t.Fatalf("store fallback should still find the exact record: %+v", result)
	}
}

func TestMatchSingleThresholdValidation(t *testing.T) {
	eng := newTestEngine(newFakeStore(), &fakeIndex{})
	_, err := eng.MatchSingle(context.Background(), question.QueryQuestion{QuestionHTML: "abc"}, Options{Threshold: 1.5})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestMatchSingleCoursePatternsApplied(t *testing.T) {
	index := &fakeIndex{}
	eng := newTestEngine(newFakeStore(), index)
	eng.MatchSingle(context.Background(), question.QueryQuestion{
		QuestionHTML: "cau hoi bat ky",
	}, Options{CourseCode: "nlu.cs101"})
	if len(index.queries) != 1 {
		t.Fatalf("expected one coarse query, got %d", len(index.queries))
	}
	patterns := index.queries[0].CoursePatterns
	if len(patterns) < 2 || patterns[0] != "NLU.CS101" || patterns[1] != "NLUCS101" {
		t.Fatalf("course patterns not expanded: %v", patterns)
	}
}
