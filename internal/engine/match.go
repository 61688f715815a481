// File path: internal/engine/match.go
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

// MatchSingle runs one query question through the hybrid pipeline: coarse
// retrieval, fine ranking, then the confidence gate. Every recoverable
// failure degrades toward a no-match result; a wrong auto-filled answer is
// worse than no answer.
func (e *Engine) MatchSingle(ctx context.Context, query question.QueryQuestion, opts Options) (question.MatchResult, error) {
	opts, err := e.resolveOptions(opts)
	if err != nil {
		return question.MatchResult{}, err
	}
	result := question.MatchResult{
		OriginalHTML:    query.QuestionHTML,
		OriginalAnswers: query.AnswersHTML,
		AllMatches:      []question.MatchCandidate{},
		MatchType:       question.MatchNone,
	}
	if strings.TrimSpace(textnorm.Normalize(query.QuestionHTML)) == "" {
		return result, nil
	}

	candidates := e.coarseCandidates(ctx, query, opts)
	if len(candidates) == 0 {
		telemetry.RecordMatch("none")
		return result, nil
	}

	ranked := e.ranker.Rank(query, candidates)
	best := ranked[0]
	result.ConfidenceScore = best.Confidence
	result.MatchType = best.MatchType
	if best.Confidence >= opts.Threshold {
		enriched := e.enrich(ctx, best)
		result.BestMatch = &enriched
		result.HasMatch = true
	}
	for _, cand := range ranked {
		if cand.Confidence < opts.Threshold {
			continue
		}
		if len(result.AllMatches) >= opts.MaxResults {
			break
		}
		result.AllMatches = append(result.AllMatches, cand)
	}
	if result.HasMatch {
		telemetry.RecordMatch(string(result.MatchType))
	} else {
		result.MatchType = question.MatchNone
		telemetry.RecordMatch("none")
	}
	return result, nil
}

// coarseCandidates asks the external index for recall candidates. Index
// failures are degraded-empty: logged, optionally replaced by the store's
// substring fallback, never fatal.
func (e *Engine) coarseCandidates(ctx context.Context, query question.QueryQuestion, opts Options) []question.MatchCandidate {
	if opts.SkipCoarse {
		return e.storeFallback(ctx, query, opts)
	}
	if e.index == nil {
		return e.storeFallback(ctx, query, opts)
	}
	normQuestion := textnorm.Normalize(query.QuestionHTML)
	normAnswers := make([]string, 0, len(query.AnswersHTML))
	for _, a := range query.AnswersHTML {
		if norm := textnorm.Normalize(a); norm != "" {
			normAnswers = append(normAnswers, norm)
		}
	}
	hits, err := e.index.Search(ctx, searchindex.SearchQuery{
		QuestionText:   normQuestion,
		AnswersText:    strings.Join(normAnswers, " "),
		CoursePatterns: searchindex.ExpandCourseCode(opts.CourseCode),
		Size:           e.cfg.CoarseSize,
	})
	if err != nil {
		common.Logger().Warn("engine: coarse retrieval degraded", "error", err)
		if opts.FuzzyFallback {
			return e.storeFallback(ctx, query, opts)
		}
		return nil
	}
	candidates := make([]question.MatchCandidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, question.MatchCandidate{
			ID:           hit.ID,
			CourseCode:   hit.CourseCode,
			QuestionHTML: hit.QuestionText,
			AnswersHTML:  hit.Answers(),
		})
	}
	return candidates
}

// storeFallback serves candidates from the store's substring search when
// the index is skipped or down. Recall is poor but exact rewordings of a
// stored question still surface.
func (e *Engine) storeFallback(ctx context.Context, query question.QueryQuestion, opts Options) []question.MatchCandidate {
	if e.store == nil {
		return nil
	}
	term := textnorm.Normalize(query.QuestionHTML)
	terms := textnorm.KeywordTokens(term)
	if len(terms) == 0 {
		return nil
	}
	// The longest keyword is the most selective LIKE probe available.
	probe := terms[0]
	for _, t := range terms {
		if len(t) > len(probe) {
			probe = t
		}
	}
	records, err := e.store.SearchQuestions(ctx, "", probe, e.cfg.CoarseSize)
	if err != nil {
		common.Logger().Warn("engine: store fallback search failed", "error", err)
		return nil
	}
	candidates := make([]question.MatchCandidate, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, candidateFromRecord(record))
	}
	return candidates
}

func candidateFromRecord(record question.StoredQuestion) question.MatchCandidate {
	return question.MatchCandidate{
		ID:                 record.ID,
		QuestionHTML:       record.QuestionHTML,
		AnswersHTML:        record.AnswersHTML,
		CorrectAnswersHTML: record.CorrectAnswersHTML,
		ExplanationHTML:    record.ExplanationHTML,
	}
}

// enrich fills a winning candidate with the stored record's correct answers
// so the caller can propagate them. Reads go through the cache; a failed
// lookup leaves the candidate as retrieved.
func (e *Engine) enrich(ctx context.Context, cand question.MatchCandidate) question.MatchCandidate {
	if len(cand.CorrectAnswersHTML) > 0 || cand.ID == "" || e.store == nil {
		return cand
	}
	record, err := e.cache.Question(ctx, cand.ID)
	if err != nil {
		record, err = e.store.QuestionByID(ctx, cand.ID)
		if err != nil {
			common.Logger().Warn("engine: best match enrichment failed", "id", cand.ID, "error", err)
			return cand
		}
		e.cache.PutQuestion(ctx, record)
	}
	cand.CorrectAnswersHTML = record.CorrectAnswersHTML
	cand.ExplanationHTML = record.ExplanationHTML
	if cand.AnswersHTML == nil {
		cand.AnswersHTML = record.AnswersHTML
	}
	return cand
}
