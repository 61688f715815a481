// File path: internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/searchindex"
	"github.com/studyaid/quizmatch/internal/textnorm"
)

// fakeStore is an in-memory QuestionStore for pipeline tests.
type fakeStore struct {
	mu      sync.Mutex
	seq     int
	records map[string]question.StoredQuestion
	codes   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]question.StoredQuestion),
		codes:   map[string]string{"course-1": "CS101"},
	}
}

func (f *fakeStore) add(record question.StoredQuestion) question.StoredQuestion {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.ID == "" {
		f.seq++
		record.ID = fmt.Sprintf("q-%d", f.seq)
	}
	if record.Fingerprint == "" {
		record.Fingerprint = question.Fingerprint(record.QuestionHTML, record.AnswersHTML)
	}
	f.records[record.ID] = record
	return record
}

func (f *fakeStore) QuestionsByCourse(ctx context.Context, courseID string, limit, offset int) ([]question.StoredQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []question.StoredQuestion
	for _, record := range f.records {
		if record.CourseID == courseID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) QuestionByID(ctx context.Context, id string) (question.StoredQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return question.StoredQuestion{}, errors.New("record not found")
	}
	return record, nil
}

func (f *fakeStore) UpsertQuestion(ctx context.Context, record question.StoredQuestion) (question.StoredQuestion, error) {
	if record.Fingerprint == "" {
		record.Fingerprint = question.Fingerprint(record.QuestionHTML, record.AnswersHTML)
	}
	f.mu.Lock()
	for id, existing := range f.records {
		if existing.CourseID == record.CourseID && existing.Fingerprint == record.Fingerprint {
			if len(record.CorrectAnswersHTML) > 0 {
				existing.CorrectAnswersHTML = record.CorrectAnswersHTML
			}
			f.records[id] = existing
			f.mu.Unlock()
			return existing, nil
		}
	}
	f.mu.Unlock()
	return f.add(record), nil
}

func (f *fakeStore) MergeQuestion(ctx context.Context, id string, correctAnswers []string, explanation string) (question.StoredQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return question.StoredQuestion{}, errors.New("record not found")
	}
	if len(correctAnswers) > 0 {
		record.CorrectAnswersHTML = correctAnswers
	}
	if strings.TrimSpace(explanation) != "" {
		record.ExplanationHTML = explanation
	}
	f.records[id] = record
	return record, nil
}

func (f *fakeStore) SearchQuestions(ctx context.Context, courseID, term string, limit int) ([]question.StoredQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []question.StoredQuestion
	for _, record := range f.records {
		if strings.Contains(textnorm.Normalize(record.QuestionHTML), textnorm.Normalize(term)) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) AllQuestions(ctx context.Context, limit, offset int) ([]question.StoredQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []question.StoredQuestion
	for _, record := range f.records {
		out = append(out, record)
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out, nil
}

func (f *fakeStore) CourseCodeFor(ctx context.Context, courseID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[courseID]
	if !ok {
		return "", errors.New("course not found")
	}
	return code, nil
}

// fakeIndex is a scripted searchindex.Index.
type fakeIndex struct {
	mu        sync.Mutex
	hits      []searchindex.Hit
	searchErr error
	indexed   []searchindex.Doc
	queries   []searchindex.SearchQuery
}

func (f *fakeIndex) Available() bool                             { return f.searchErr == nil }
func (f *fakeIndex) EnsureIndex(ctx context.Context) error       { return nil }
func (f *fakeIndex) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeIndex) Search(ctx context.Context, query searchindex.SearchQuery) ([]searchindex.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeIndex) IndexQuestion(ctx context.Context, doc searchindex.Doc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeIndex) BulkIndex(ctx context.Context, docs []searchindex.Doc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, docs...)
	return nil
}

func (f *fakeIndex) Stats(ctx context.Context) (searchindex.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return searchindex.Stats{Index: "fake", DocCount: int64(len(f.indexed)), Available: true}, nil
}
