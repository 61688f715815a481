// File path: internal/sqlite/types.go
package sqlite

import "time"

// courseRow mirrors the courses table.
type courseRow struct {
	ID         string    `db:"id"`
	CourseCode string    `db:"course_code"`
	CourseName string    `db:"course_name"`
	CreatedAt  time.Time `db:"created_at"`
}

// questionRow mirrors the questions table. Answer sets are stored as JSON
// arrays so ordering survives the round trip.
type questionRow struct {
	ID                 string    `db:"id"`
	CourseID           string    `db:"course_id"`
	QuestionHTML       string    `db:"question_html"`
	QuestionNorm       string    `db:"question_norm"`
	AnswersJSON        string    `db:"answers_json"`
	CorrectAnswersJSON string    `db:"correct_answers_json"`
	ExplanationHTML    string    `db:"explanation_html"`
	Fingerprint        string    `db:"fingerprint"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}
