// File path: internal/matcher/dedup.go
package matcher

import (
	"github.com/studyaid/quizmatch/internal/common/telemetry"
	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/similarity"
	"github.com/studyaid/quizmatch/internal/textnorm"
)

// Rule names for dedup decisions, in precedence order.
const (
	RuleExact           = "exact"
	RuleQuestionAnswer  = "question_answer"
	RuleQuestionCorrect = "question_correct"
	RuleWeighted        = "weighted"
)

// Decision reports whether an incoming question duplicates a record in the
// existing pool, which rule fired, and the matched record.
type Decision struct {
	Duplicate bool
	Rule      string
	Match     *question.StoredQuestion
	Score     float64
}

// Decider applies the tiered duplicate policy at ingestion time. Only the
// exact rule is lossless; the similarity rules are tunable heuristics.
type Decider struct {
	cfg Config
}

func NewDecider(cfg Config) *Decider {
	cfg.applyDefaults()
	return &Decider{cfg: cfg}
}

// Decide scans the pool in order and returns on the first record any rule
// accepts. The fingerprint is only a probe; exact duplicates are confirmed
// by comparing the normalized strings before the decision is trusted.
func (d *Decider) Decide(incoming question.IngestQuestion, pool []question.StoredQuestion) Decision {
	questionNorm := textnorm.Normalize(incoming.QuestionHTML)
	answersJoin := question.NormalizedAnswerJoin(incoming.AnswersHTML)
	fingerprint := question.Fingerprint(incoming.QuestionHTML, incoming.AnswersHTML)

	for i := range pool {
		record := &pool[i]
		probe := record.Fingerprint
		if probe == "" {
			probe = question.Fingerprint(record.QuestionHTML, record.AnswersHTML)
		}
		if probe != fingerprint {
			continue
		}
		if questionNorm == textnorm.Normalize(record.QuestionHTML) &&
			answersJoin == question.NormalizedAnswerJoin(record.AnswersHTML) {
			telemetry.RecordDedup(RuleExact)
			return Decision{Duplicate: true, Rule: RuleExact, Match: record, Score: 1}
		}
	}

	thresholds := d.cfg.Dedup
	for i := range pool {
		record := &pool[i]
		qSim := similarity.Text(incoming.QuestionHTML, record.QuestionHTML)
		aSim := similarity.TextAnswerSet(incoming.AnswersHTML, record.AnswersHTML)
		cSim := similarity.TextAnswerSet(incoming.CorrectAnswersHTML, record.CorrectAnswersHTML)

		if qSim > thresholds.QuestionHigh && aSim > thresholds.AnswerHigh {
			telemetry.RecordDedup(RuleQuestionAnswer)
			return Decision{Duplicate: true, Rule: RuleQuestionAnswer, Match: record, Score: qSim}
		}
		if qSim > thresholds.QuestionStrict && cSim > thresholds.CorrectFloor {
			telemetry.RecordDedup(RuleQuestionCorrect)
			return Decision{Duplicate: true, Rule: RuleQuestionCorrect, Match: record, Score: qSim}
		}
		weighted := thresholds.WeightedQuestion*qSim +
			thresholds.WeightedAnswer*aSim +
			thresholds.WeightedCorrect*cSim
		if weighted > thresholds.WeightedFloor {
			telemetry.RecordDedup(RuleWeighted)
			return Decision{Duplicate: true, Rule: RuleWeighted, Match: record, Score: weighted}
		}
	}
	return Decision{}
}
