// File path: internal/question/types.go
package question

import "time"

// QueryQuestion is one freshly scraped question submitted for matching. The
// engine never mutates it.
type QueryQuestion struct {
	QuestionHTML string   `json:"questionHtml"`
	AnswersHTML  []string `json:"answersHtml"`
}

// IngestQuestion is a scraped question with known answers, submitted on the
// ingestion path.
type IngestQuestion struct {
	QuestionHTML       string   `json:"questionHtml"`
	AnswersHTML        []string `json:"answersHtml"`
	CorrectAnswersHTML []string `json:"correctAnswersHtml"`
	ExplanationHTML    string   `json:"explanationHtml,omitempty"`
}

// StoredQuestion is a persisted question record. It is owned by the store and
// read-only to the matching engine; merges on dedup are delegated back
// through the store's update contract.
type StoredQuestion struct {
	ID                 string    `json:"id"`
	CourseID           string    `json:"courseId"`
	QuestionHTML       string    `json:"questionHtml"`
	AnswersHTML        []string  `json:"answersHtml"`
	CorrectAnswersHTML []string  `json:"correctAnswersHtml"`
	ExplanationHTML    string    `json:"explanationHtml,omitempty"`
	Fingerprint        string    `json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Course groups stored questions under the course code used for filtered
// retrieval.
type Course struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"courseCode"`
	CourseName string    `json:"courseName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MatchType classifies how a match was produced.
type MatchType string

const (
	MatchNone            MatchType = ""
	MatchExact           MatchType = "exact"
	MatchEnhancedKeyword MatchType = "enhanced_keyword"
	MatchPartial         MatchType = "partial"
	MatchQuestion        MatchType = "question"
	MatchAnswer          MatchType = "answer"
	MatchExplanation     MatchType = "explanation"
	MatchCombined        MatchType = "combined"
)

// MatchCandidate is one scored candidate produced by a ranking pass.
type MatchCandidate struct {
	ID                    string    `json:"id"`
	CourseCode            string    `json:"courseCode,omitempty"`
	QuestionHTML          string    `json:"questionHtml"`
	AnswersHTML           []string  `json:"answersHtml"`
	CorrectAnswersHTML    []string  `json:"correctAnswersHtml"`
	ExplanationHTML       string    `json:"explanationHtml,omitempty"`
	QuestionSimilarity    float64   `json:"questionSimilarity"`
	AnswerSetSimilarity   float64   `json:"answerSetSimilarity"`
	ExplanationSimilarity float64   `json:"explanationSimilarity,omitempty"`
	WeightedScore         float64   `json:"weightedScore"`
	Confidence            float64   `json:"confidenceScore"`
	MatchType             MatchType `json:"matchType"`
}

// MatchResult is the outcome for a single query question. AllMatches is
// sorted descending by weighted score, ties kept in retrieval order.
type MatchResult struct {
	QuestionIndex   int              `json:"questionIndex"`
	OriginalHTML    string           `json:"originalQuestion"`
	OriginalAnswers []string         `json:"originalAnswers,omitempty"`
	BestMatch       *MatchCandidate  `json:"bestMatch,omitempty"`
	AllMatches      []MatchCandidate `json:"allMatches"`
	ConfidenceScore float64          `json:"confidenceScore"`
	MatchType       MatchType        `json:"matchType"`
	HasMatch        bool             `json:"hasMatch"`
	Error           string           `json:"error,omitempty"`
}

// BulkResult aggregates a batch run. Results always has exactly one entry per
// input question, in input order, even for items whose processing failed.
type BulkResult struct {
	TotalQuestions    int           `json:"totalQuestions"`
	MatchedQuestions  int           `json:"matchedQuestions"`
	AverageConfidence float64       `json:"averageConfidence"`
	ProcessingTimeMs  int64         `json:"processingTimeMs"`
	Results           []MatchResult `json:"results"`
	Errors            []string      `json:"errors,omitempty"`
}
