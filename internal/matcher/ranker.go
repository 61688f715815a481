// File path: internal/matcher/ranker.go
package matcher

import (
	"sort"

	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/similarity"
	"github.com/studyaid/quizmatch/internal/textnorm"
)

// Ranker re-scores coarse candidates against a query question. Coarse
// retrieval optimizes recall; the ranker restores precision and classifies
// how each candidate matched.
type Ranker struct {
	cfg Config
}

func NewRanker(cfg Config) *Ranker {
	cfg.applyDefaults()
	return &Ranker{cfg: cfg}
}

// preparedQuery caches the normalized forms of one query question so a
// candidate loop does not re-normalize per candidate.
type preparedQuery struct {
	questionNorm string
	answerNorms  []string
}

func prepareQuery(q question.QueryQuestion) preparedQuery {
	prep := preparedQuery{questionNorm: textnorm.Normalize(q.QuestionHTML)}
	prep.answerNorms = make([]string, 0, len(q.AnswersHTML))
	for _, a := range q.AnswersHTML {
		// Scraped options often carry "a." style enumeration markers
		// that stored answers lack; comparison drops them.
		norm := textnorm.NormalizeAnswer(a)
		if norm != "" {
			prep.answerNorms = append(prep.answerNorms, norm)
		}
	}
	return prep
}

// Rank scores every candidate and returns them sorted descending by
// weighted score. Sorting is stable so ties keep retrieval order.
func (r *Ranker) Rank(query question.QueryQuestion, candidates []question.MatchCandidate) []question.MatchCandidate {
	if len(candidates) == 0 {
		return nil
	}
	prep := prepareQuery(query)
	ranked := make([]question.MatchCandidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		r.score(prep, query, &ranked[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WeightedScore > ranked[j].WeightedScore
	})
	return ranked
}

func (r *Ranker) score(prep preparedQuery, query question.QueryQuestion, cand *question.MatchCandidate) {
	candQuestionNorm := textnorm.Normalize(cand.QuestionHTML)

	// Exact short-circuits: identical normalized question text is full
	// certainty; an identical answer option is near certainty.
	if prep.questionNorm != "" && prep.questionNorm == candQuestionNorm {
		cand.QuestionSimilarity = 1
		cand.AnswerSetSimilarity = similarity.KeywordAnswerSet(query.AnswersHTML, cand.AnswersHTML)
		cand.WeightedScore = 1
		cand.Confidence = 1
		cand.MatchType = question.MatchExact
		return
	}
	for _, queryAnswer := range prep.answerNorms {
		for _, candAnswer := range cand.AnswersHTML {
			if queryAnswer == textnorm.NormalizeAnswer(candAnswer) {
				cand.QuestionSimilarity = similarity.Keyword(query.QuestionHTML, cand.QuestionHTML)
				cand.AnswerSetSimilarity = 1
				cand.WeightedScore = r.cfg.ExactAnswerConfidence
				cand.Confidence = r.cfg.ExactAnswerConfidence
				cand.MatchType = question.MatchExact
				return
			}
		}
	}

	qSim := similarity.Keyword(query.QuestionHTML, cand.QuestionHTML)
	aSim := similarity.KeywordAnswerSet(query.AnswersHTML, cand.AnswersHTML)
	weighted := r.cfg.QuestionWeight*qSim + r.cfg.AnswerWeight*aSim
	confidence := weighted
	// Keyword matching never claims full certainty.
	if confidence > r.cfg.KeywordConfidenceCap {
		confidence = r.cfg.KeywordConfidenceCap
	}
	cand.QuestionSimilarity = qSim
	cand.AnswerSetSimilarity = aSim
	cand.WeightedScore = weighted
	cand.Confidence = confidence
	cand.MatchType = question.MatchEnhancedKeyword
}

// SearchScore applies the precision weighting used for human-facing search
// results: explanation similarity only contributes when it is strong on its
// own, and the match type names whichever field dominated.
func (r *Ranker) SearchScore(query question.QueryQuestion, cand *question.MatchCandidate) {
	qSim := similarity.Keyword(query.QuestionHTML, cand.QuestionHTML)
	aSim := similarity.KeywordAnswerSet(query.AnswersHTML, cand.AnswersHTML)
	expSim := 0.0
	if cand.ExplanationHTML != "" {
		expSim = similarity.Keyword(query.QuestionHTML, cand.ExplanationHTML)
	}
	score := r.cfg.SearchQuestionWeight*qSim + r.cfg.SearchAnswerWeight*aSim
	if expSim > r.cfg.ExplanationFloor {
		score += r.cfg.SearchExplanationWeight * expSim
	}
	switch {
	case qSim > 0.8:
		cand.MatchType = question.MatchQuestion
	case aSim > 0.8:
		cand.MatchType = question.MatchAnswer
	case expSim > r.cfg.ExplanationFloor:
		cand.MatchType = question.MatchExplanation
	default:
		cand.MatchType = question.MatchCombined
	}
	cand.QuestionSimilarity = qSim
	cand.AnswerSetSimilarity = aSim
	cand.ExplanationSimilarity = expSim
	cand.WeightedScore = score
	cand.Confidence = score
}
