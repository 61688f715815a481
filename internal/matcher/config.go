// File path: internal/matcher/config.go
package matcher

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config carries the scoring weights and duplicate thresholds. The values
// are heuristics rather than derived constants, so every one of them can be
// overridden through the environment and tuned against real data.
type Config struct {
	QuestionWeight float64 `json:"question_weight"`
	AnswerWeight   float64 `json:"answer_weight"`

	SearchQuestionWeight    float64 `json:"search_question_weight"`
	SearchAnswerWeight      float64 `json:"search_answer_weight"`
	SearchExplanationWeight float64 `json:"search_explanation_weight"`
	ExplanationFloor        float64 `json:"explanation_floor"`

	KeywordConfidenceCap  float64 `json:"keyword_confidence_cap"`
	ExactAnswerConfidence float64 `json:"exact_answer_confidence"`

	Dedup DedupThresholds `json:"dedup"`
}

// DedupThresholds parameterize the tiered duplicate policy, checked in
// order: exact content equality, high question and answer similarity, strict
// question with correct-answer agreement, then the weighted overall score.
type DedupThresholds struct {
	QuestionHigh   float64 `json:"question_high"`
	AnswerHigh     float64 `json:"answer_high"`
	QuestionStrict float64 `json:"question_strict"`
	CorrectFloor   float64 `json:"correct_floor"`

	WeightedQuestion float64 `json:"weighted_question"`
	WeightedAnswer   float64 `json:"weighted_answer"`
	WeightedCorrect  float64 `json:"weighted_correct"`
	WeightedFloor    float64 `json:"weighted_floor"`
}

func DefaultConfig() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.QuestionWeight <= 0 {
		c.QuestionWeight = 0.6
	}
	if c.AnswerWeight <= 0 {
		c.AnswerWeight = 0.4
	}
	if c.SearchQuestionWeight <= 0 {
		c.SearchQuestionWeight = 0.5
	}
	if c.SearchAnswerWeight <= 0 {
		c.SearchAnswerWeight = 0.3
	}
	if c.SearchExplanationWeight <= 0 {
		c.SearchExplanationWeight = 0.2
	}
	if c.ExplanationFloor <= 0 {
		c.ExplanationFloor = 0.7
	}
	if c.KeywordConfidenceCap <= 0 {
		c.KeywordConfidenceCap = 0.95
	}
	if c.ExactAnswerConfidence <= 0 {
		c.ExactAnswerConfidence = 0.9
	}
	if c.Dedup.QuestionHigh <= 0 {
		c.Dedup.QuestionHigh = 0.7
	}
	if c.Dedup.AnswerHigh <= 0 {
		c.Dedup.AnswerHigh = 0.7
	}
	if c.Dedup.QuestionStrict <= 0 {
		c.Dedup.QuestionStrict = 0.8
	}
	if c.Dedup.CorrectFloor <= 0 {
		c.Dedup.CorrectFloor = 0.6
	}
	if c.Dedup.WeightedQuestion <= 0 {
		c.Dedup.WeightedQuestion = 0.6
	}
	if c.Dedup.WeightedAnswer <= 0 {
		c.Dedup.WeightedAnswer = 0.3
	}
	if c.Dedup.WeightedCorrect <= 0 {
		c.Dedup.WeightedCorrect = 0.1
	}
	if c.Dedup.WeightedFloor <= 0 {
		c.Dedup.WeightedFloor = 0.85
	}
}

func (c Config) Merge(override Config) Config {
	result := c
	merge := func(dst *float64, src float64) {
		if src > 0 {
			*dst = src
		}
	}
	merge(&result.QuestionWeight, override.QuestionWeight)
	merge(&result.AnswerWeight, override.AnswerWeight)
	merge(&result.SearchQuestionWeight, override.SearchQuestionWeight)
	merge(&result.SearchAnswerWeight, override.SearchAnswerWeight)
	merge(&result.SearchExplanationWeight, override.SearchExplanationWeight)
	merge(&result.ExplanationFloor, override.ExplanationFloor)
	merge(&result.KeywordConfidenceCap, override.KeywordConfidenceCap)
	merge(&result.ExactAnswerConfidence, override.ExactAnswerConfidence)
	merge(&result.Dedup.QuestionHigh, override.Dedup.QuestionHigh)
	merge(&result.Dedup.AnswerHigh, override.Dedup.AnswerHigh)
	merge(&result.Dedup.QuestionStrict, override.Dedup.QuestionStrict)
	merge(&result.Dedup.CorrectFloor, override.Dedup.CorrectFloor)
	merge(&result.Dedup.WeightedQuestion, override.Dedup.WeightedQuestion)
	merge(&result.Dedup.WeightedAnswer, override.Dedup.WeightedAnswer)
	merge(&result.Dedup.WeightedCorrect, override.Dedup.WeightedCorrect)
	merge(&result.Dedup.WeightedFloor, override.Dedup.WeightedFloor)
	return result
}

// LoadConfig reads overrides from QUIZ_MATCH_* environment variables on top
// of the defaults.
func LoadConfig() (Config, error) {
	cfg := Config{}
	overrides := []struct {
		env string
		dst *float64
	}{
		{"QUIZ_MATCH_QUESTION_WEIGHT", &cfg.QuestionWeight},
		{"QUIZ_MATCH_ANSWER_WEIGHT", &cfg.AnswerWeight},
		{"QUIZ_MATCH_SEARCH_QUESTION_WEIGHT", &cfg.SearchQuestionWeight},
		{"QUIZ_MATCH_SEARCH_ANSWER_WEIGHT", &cfg.SearchAnswerWeight},
		{"QUIZ_MATCH_SEARCH_EXPLANATION_WEIGHT", &cfg.SearchExplanationWeight},
		{"QUIZ_MATCH_EXPLANATION_FLOOR", &cfg.ExplanationFloor},
		{"QUIZ_MATCH_KEYWORD_CAP", &cfg.KeywordConfidenceCap},
		{"QUIZ_MATCH_EXACT_ANSWER_CONFIDENCE", &cfg.ExactAnswerConfidence},
		{"QUIZ_MATCH_DEDUP_QUESTION_HIGH", &cfg.Dedup.QuestionHigh},
		{"QUIZ_MATCH_DEDUP_ANSWER_HIGH", &cfg.Dedup.AnswerHigh},
		{"QUIZ_MATCH_DEDUP_QUESTION_STRICT", &cfg.Dedup.QuestionStrict},
		{"QUIZ_MATCH_DEDUP_CORRECT_FLOOR", &cfg.Dedup.CorrectFloor},
		{"QUIZ_MATCH_DEDUP_WEIGHTED_QUESTION", &cfg.Dedup.WeightedQuestion},
		{"QUIZ_MATCH_DEDUP_WEIGHTED_ANSWER", &cfg.Dedup.WeightedAnswer},
		{"QUIZ_MATCH_DEDUP_WEIGHTED_CORRECT", &cfg.Dedup.WeightedCorrect},
		{"QUIZ_MATCH_DEDUP_WEIGHTED_FLOOR", &cfg.Dedup.WeightedFloor},
	}
	for _, o := range overrides {
		raw := strings.TrimSpace(os.Getenv(o.env))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", o.env, err)
		}
		if value <= 0 || value > 1 {
			return Config{}, fmt.Errorf("%s must lie in (0,1], got %v", o.env, value)
		}
		*o.dst = value
	}
	cfg.applyDefaults()
	return cfg, nil
}
