// File path: internal/api/types.go
package api

import (
	"github.com/studyaid/quizmatch/internal/engine"
	"github.com/studyaid/quizmatch/internal/question"
)

// matchOptions is the wire form of engine.Options. Zero values defer to the
// engine defaults.
type matchOptions struct {
	Threshold     float64 `json:"threshold,omitempty"`
	MaxResults    int     `json:"maxResults,omitempty"`
	CourseCode    string  `json:"courseCode,omitempty"`
	SkipCoarse    bool    `json:"skipCoarse,omitempty"`
	FuzzyFallback bool    `json:"fuzzyFallback,omitempty"`
}

func (m matchOptions) engineOptions() engine.Options {
	return engine.Options{
		Threshold:     m.Threshold,
		MaxResults:    m.MaxResults,
		CourseCode:    m.CourseCode,
		SkipCoarse:    m.SkipCoarse,
		FuzzyFallback: m.FuzzyFallback,
	}
}

type matchRequest struct {
	Question question.QueryQuestion `json:"question"`
	Options  matchOptions           `json:"options"`
}

type bulkMatchRequest struct {
	Questions []question.QueryQuestion `json:"questions"`
	Options   matchOptions             `json:"options"`
}

type upsertQuestionRequest struct {
	CourseCode string                  `json:"courseCode"`
	CourseName string                  `json:"courseName,omitempty"`
	Question   question.IngestQuestion `json:"question"`
}

type bulkUpsertRequest struct {
	CourseCode string                    `json:"courseCode"`
	CourseName string                    `json:"courseName,omitempty"`
	Questions  []question.IngestQuestion `json:"questions"`
}

type bulkUpsertResponse struct {
	CourseID  string                    `json:"courseId"`
	Stored    int                       `json:"stored"`
	Questions []question.StoredQuestion `json:"questions"`
}

type createCourseRequest struct {
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
}

type courseQuestionsResponse struct {
	Course    question.Course           `json:"course"`
	Questions []question.StoredQuestion `json:"questions"`
}

type reindexResponse struct {
	Indexed int `json:"indexed"`
}
