// File path: internal/sqlite/mapper.go
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studyaid/quizmatch/internal/question"
)

func encodeAnswers(answers []string) (string, error) {
	if answers == nil {
		answers = []string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return string(data), nil
}

func decodeAnswers(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var answers []string
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, nil
	}
	return answers, nil
}

func rowToCourse(row courseRow) question.Course {
	return question.Course{
		ID:         row.ID,
		CourseCode: row.CourseCode,
		CourseName: row.CourseName,
		CreatedAt:  row.CreatedAt,
	}
}

func rowToQuestion(row questionRow) (question.StoredQuestion, error) {
	answers, err := decodeAnswers(row.AnswersJSON)
	if err != nil {
		return question.StoredQuestion{}, err
	}
	correct, err := decodeAnswers(row.CorrectAnswersJSON)
	if err != nil {
		return question.StoredQuestion{}, err
	}
	return question.StoredQuestion{
		ID:                 row.ID,
		CourseID:           row.CourseID,
		QuestionHTML:       row.QuestionHTML,
		AnswersHTML:        answers,
		CorrectAnswersHTML: correct,
		ExplanationHTML:    row.ExplanationHTML,
		Fingerprint:        row.Fingerprint,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

func rowsToQuestions(rows []questionRow) ([]question.StoredQuestion, error) {
	out := make([]question.StoredQuestion, 0, len(rows))
	for _, row := range rows {
		record, err := rowToQuestion(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
