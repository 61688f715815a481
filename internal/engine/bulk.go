// File path: internal/engine/bulk.go
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/common/telemetry"
	"github.com/studyaid/quizmatch/internal/question"
)

// BulkMatch fans a batch through the hybrid pipeline on a bounded worker
// pool. The result list always holds exactly one entry per input question,
// in input order; per-item failures are isolated and recorded, never fatal.
func (e *Engine) BulkMatch(ctx context.Context, questions []question.QueryQuestion, opts Options) (question.BulkResult, error) {
	return e.runBulk(ctx, questions, opts, e.MatchSingle)
}

// BulkSearch runs the precision search weighting over the same fan-out,
// feeding human-facing results rather than answer propagation.
func (e *Engine) BulkSearch(ctx context.Context, questions []question.QueryQuestion, opts Options) (question.BulkResult, error) {
	return e.runBulk(ctx, questions, opts, e.searchSingle)
}

type itemFunc func(ctx context.Context, query question.QueryQuestion, opts Options) (question.MatchResult, error)

func (e *Engine) runBulk(ctx context.Context, questions []question.QueryQuestion, opts Options, process itemFunc) (question.BulkResult, error) {
	if len(questions) == 0 {
		return question.BulkResult{}, validationErrorf("empty batch")
	}
	opts, err := e.resolveOptions(opts)
	if err != nil {
		return question.BulkResult{}, err
	}
	start := time.Now()
	logger := common.Logger()
	logger.Info("engine: bulk run started", "questions", len(questions), "threshold", opts.Threshold)

	type matchJob struct {
		index int
		query question.QueryQuestion
	}
	type matchOutcome struct {
		index  int
		result question.MatchResult
		err    error
	}
	workerCount := min(e.cfg.Workers, len(questions))
	jobCh := make(chan matchJob)
	outcomes := make(chan matchOutcome, len(questions))
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				select {
				case <-ctx.Done():
					outcomes <- matchOutcome{index: job.index, err: ctx.Err()}
					continue
				default:
				}
				result, err := e.processItem(ctx, job.query, opts, process)
				outcomes <- matchOutcome{index: job.index, result: result, err: err}
			}
		}()
	}
	go func() {
		for idx, query := range questions {
			jobCh <- matchJob{index: idx, query: query}
		}
		close(jobCh)
		wg.Wait()
		close(outcomes)
	}()

	batch := question.BulkResult{
		TotalQuestions: len(questions),
		Results:        make([]question.MatchResult, len(questions)),
	}
	var confidenceSum float64
	for outcome := range outcomes {
		result := outcome.result
		if outcome.err != nil {
			// A failed item still occupies its slot, as a no-match
			// carrying the failure.
			result = question.MatchResult{
				OriginalHTML:    questions[outcome.index].QuestionHTML,
				OriginalAnswers: questions[outcome.index].AnswersHTML,
				AllMatches:      []question.MatchCandidate{},
				MatchType:       question.MatchNone,
				Error:           outcome.err.Error(),
			}
			batch.Errors = append(batch.Errors, fmt.Sprintf("question %d: %v", outcome.index, outcome.err))
		}
		result.QuestionIndex = outcome.index
		batch.Results[outcome.index] = result
		if result.HasMatch {
			batch.MatchedQuestions++
		}
		// Items without an accepted match contribute zero to the
		// average, even when a sub-threshold confidence was recorded.
		if result.BestMatch != nil {
			confidenceSum += result.ConfidenceScore
		}
	}
	batch.AverageConfidence = confidenceSum / float64(len(questions))
	batch.ProcessingTimeMs = time.Since(start).Milliseconds()
	telemetry.RecordBulkBatch(len(questions))
	logger.Info("engine: bulk run finished",
		"questions", batch.TotalQuestions,
		"matched", batch.MatchedQuestions,
		"elapsed_ms", batch.ProcessingTimeMs)
	return batch, nil
}

// processItem is the per-item failure boundary: a panic while scoring one
// question becomes that item's error, not the batch's.
func (e *Engine) processItem(ctx context.Context, query question.QueryQuestion, opts Options, process itemFunc) (result question.MatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while matching: %v", r)
		}
	}()
	return process(ctx, query, opts)
}

// searchSingle mirrors MatchSingle but scores candidates with the precision
// search weighting and does not propagate correct answers.
func (e *Engine) searchSingle(ctx context.Context, query question.QueryQuestion, opts Options) (question.MatchResult, error) {
	result := question.MatchResult{
		OriginalHTML:    query.QuestionHTML,
		OriginalAnswers: query.AnswersHTML,
		AllMatches:      []question.MatchCandidate{},
		MatchType:       question.MatchNone,
	}
	candidates := e.coarseCandidates(ctx, query, opts)
	for i := range candidates {
		if candidates[i].ExplanationHTML == "" && candidates[i].ID != "" {
			candidates[i] = e.enrichForSearch(ctx, candidates[i])
		}
		e.ranker.SearchScore(query, &candidates[i])
	}
	sortCandidates(candidates)
	if len(candidates) == 0 {
		return result, nil
	}
	best := candidates[0]
	result.ConfidenceScore = best.Confidence
	result.MatchType = best.MatchType
	if best.Confidence >= opts.Threshold {
		result.BestMatch = &best
		result.HasMatch = true
	} else {
		result.MatchType = question.MatchNone
	}
	for _, cand := range candidates {
		if cand.Confidence < opts.Threshold || len(result.AllMatches) >= opts.MaxResults {
			continue
		}
		result.AllMatches = append(result.AllMatches, cand)
	}
	return result, nil
}

func (e *Engine) enrichForSearch(ctx context.Context, cand question.MatchCandidate) question.MatchCandidate {
	record, err := e.cache.Question(ctx, cand.ID)
	if err != nil {
		record, err = e.store.QuestionByID(ctx, cand.ID)
		if err != nil {
			return cand
		}
		e.cache.PutQuestion(ctx, record)
	}
	cand.ExplanationHTML = record.ExplanationHTML
	cand.CorrectAnswersHTML = record.CorrectAnswersHTML
	return cand
}

func sortCandidates(cands []question.MatchCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].WeightedScore > cands[j].WeightedScore
	})
}
