// File path: internal/engine/reindex.go
package engine

import (
	"context"
	"errors"

	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/searchindex"
)

const reindexPage = 500

// Reindex rebuilds the search index from the store, paging through the
// whole catalog. Returns the number of documents written.
func (e *Engine) Reindex(ctx context.Context) (int, error) {
	if e.index == nil {
		return 0, errors.New("search index not configured")
	}
	if err := e.index.EnsureIndex(ctx); err != nil {
		return 0, err
	}
	logger := common.Logger()
	codes := make(map[string]string)
	total := 0
	for offset := 0; ; offset += reindexPage {
		records, err := e.store.AllQuestions(ctx, reindexPage, offset)
		if err != nil {
			return total, err
		}
		if len(records) == 0 {
			break
		}
		docs := make([]searchindex.Doc, 0, len(records))
		for _, record := range records {
			code, ok := codes[record.CourseID]
			if !ok {
				code, err = e.store.CourseCodeFor(ctx, record.CourseID)
				if err != nil {
					logger.Warn("engine: course code lookup failed during reindex",
						"courseId", record.CourseID, "error", err)
					code = ""
				}
				codes[record.CourseID] = code
			}
			docs = append(docs, docFromRecord(record, code))
		}
		if err := e.index.BulkIndex(ctx, docs); err != nil {
			return total, err
		}
		total += len(docs)
		if len(records) < reindexPage {
			break
		}
	}
	logger.Info("engine: reindex complete", "documents", total)
	return total, nil
}

// IndexStats reports the index document count alongside the store's, so
// drift between the two is visible.
func (e *Engine) IndexStats(ctx context.Context) (searchindex.Stats, error) {
	if e.index == nil {
		return searchindex.Stats{}, errors.New("search index not configured")
	}
	return e.index.Stats(ctx)
}

// Question reads one stored record through the cache.
func (e *Engine) Question(ctx context.Context, id string) (question.StoredQuestion, error) {
	record, err := e.cache.Question(ctx, id)
	if err == nil {
		return record, nil
	}
	record, err = e.store.QuestionByID(ctx, id)
	if err != nil {
		return question.StoredQuestion{}, err
	}
	e.cache.PutQuestion(ctx, record)
	return record, nil
}
