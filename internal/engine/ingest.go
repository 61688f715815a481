// File path: internal/engine/ingest.go
package engine

import (
	"context"
	"strings"

	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/common/telemetry"
	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/searchindex"
	"github.com/studyaid/quizmatch/internal/textnorm"
)

// BulkDeduplicateUpsert is the ingestion path: each scraped question is
// checked against the course's existing records and either merged into its
// duplicate or inserted fresh. The returned slice holds one persisted
// record per processed item, in input order; items whose question text is
// empty after normalization are skipped and leave no record.
//
// Items are processed sequentially on purpose: each decision must see the
// records written by earlier items in the same batch, or a batch that
// repeats itself would insert every copy.
func (e *Engine) BulkDeduplicateUpsert(ctx context.Context, items []question.IngestQuestion, courseID string) ([]question.StoredQuestion, error) {
	if len(items) == 0 {
		return nil, validationErrorf("empty batch")
	}
	if strings.TrimSpace(courseID) == "" {
		return nil, validationErrorf("course id required")
	}
	logger := common.Logger()

	pool, err := e.cache.CoursePage(ctx, courseID)
	if err != nil {
		pool, err = e.store.QuestionsByCourse(ctx, courseID, 0, 0)
		if err != nil {
			return nil, err
		}
		e.cache.PutCoursePage(ctx, courseID, pool)
	}

	courseCode, codeErr := e.store.CourseCodeFor(ctx, courseID)
	if codeErr != nil {
		logger.Warn("engine: course code lookup failed, index docs unscoped", "courseId", courseID, "error", codeErr)
	}

	stored := make([]question.StoredQuestion, 0, len(items))
	var indexDocs []searchindex.Doc
	var upserts int
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(textnorm.Normalize(item.QuestionHTML)) == "" {
			continue
		}
		decision := e.decider.Decide(item, pool)
		if decision.Duplicate {
			merged, err := e.store.MergeQuestion(ctx, decision.Match.ID, item.CorrectAnswersHTML, item.ExplanationHTML)
			if err != nil {
				return nil, err
			}
			logger.Debug("engine: duplicate merged",
				"id", merged.ID, "rule", decision.Rule, "score", decision.Score)
			e.cache.InvalidateQuestion(ctx, merged.ID)
			replaceInPool(pool, merged)
			stored = append(stored, merged)
			continue
		}
		record, err := e.store.UpsertQuestion(ctx, question.StoredQuestion{
			CourseID:           courseID,
			QuestionHTML:       item.QuestionHTML,
			AnswersHTML:        item.AnswersHTML,
			CorrectAnswersHTML: item.CorrectAnswersHTML,
			ExplanationHTML:    item.ExplanationHTML,
		})
		if err != nil {
			return nil, err
		}
		upserts++
		// Later items in this batch dedup against the fresh record too.
		pool = append(pool, record)
		stored = append(stored, record)
		indexDocs = append(indexDocs, docFromRecord(record, courseCode))
	}
	e.cache.InvalidateCourse(ctx, courseID)
	if upserts > 0 {
		telemetry.RecordUpsert(upserts)
	}

	// Indexing is best effort; the store is the source of truth and the
	// index catches up on the next reindex.
	if e.index != nil && len(indexDocs) > 0 {
		if err := e.index.BulkIndex(ctx, indexDocs); err != nil {
			logger.Warn("engine: indexing new questions failed", "count", len(indexDocs), "error", err)
		}
	}
	return stored, nil
}

func replaceInPool(pool []question.StoredQuestion, record question.StoredQuestion) {
	for i := range pool {
		if pool[i].ID == record.ID {
			pool[i] = record
			return
		}
	}
}

func docFromRecord(record question.StoredQuestion, courseCode string) searchindex.Doc {
	norms := make([]string, 0, len(record.AnswersHTML))
	for _, a := range record.AnswersHTML {
		if norm := textnorm.Normalize(a); norm != "" {
			norms = append(norms, norm)
		}
	}
	return searchindex.Doc{
		ID:              record.ID,
		CourseCode:      courseCode,
		QuestionText:    textnorm.Normalize(record.QuestionHTML),
		AnswersText:     strings.Join(norms, "|"),
		ExplanationText: textnorm.Normalize(record.ExplanationHTML),
	}
}
