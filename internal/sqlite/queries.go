// File path: internal/sqlite/queries.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/textnorm"
)

// maxCoursePage bounds the candidate pool fetched for one dedup pass.
const maxCoursePage = 1000

// EnsureCourse finds the course with the given code, creating it when
// missing. Codes are stored trimmed and uppercased.
func (s *Store) EnsureCourse(ctx context.Context, code, name string) (question.Course, error) {
	if s == nil || s.db == nil {
		return question.Course{}, errors.New("sqlite store not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return question.Course{}, errors.New("course code required")
	}
	var row courseRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM courses WHERE course_code = ?`, code)
	if err == nil {
		if trimmed := strings.TrimSpace(name); trimmed != "" && trimmed != row.CourseName {
			if _, uerr := s.db.ExecContext(ctx, `UPDATE courses SET course_name = ? WHERE id = ?`, trimmed, row.ID); uerr != nil {
				return question.Course{}, fmt.Errorf("update course name: %w", uerr)
			}
			row.CourseName = trimmed
		}
		return rowToCourse(row), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return question.Course{}, fmt.Errorf("load course: %w", err)
	}
	row = courseRow{
		ID:         uuid.NewString(),
		CourseCode: code,
		CourseName: strings.TrimSpace(name),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO courses(id, course_code, course_name, created_at)
                VALUES(?, ?, ?, ?)
                ON CONFLICT(course_code) DO NOTHING`,
		row.ID, row.CourseCode, row.CourseName, row.CreatedAt); err != nil {
		return question.Course{}, fmt.Errorf("insert course: %w", err)
	}
	// Reload in case a concurrent insert won the conflict.
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM courses WHERE course_code = ?`, code); err != nil {
		return question.Course{}, fmt.Errorf("load course: %w", err)
	}
	return rowToCourse(row), nil
}

// CourseByCode retrieves a course by its code.
func (s *Store) CourseByCode(ctx context.Context, code string) (question.Course, error) {
	if s == nil || s.db == nil {
		return question.Course{}, errors.New("sqlite store not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	var row courseRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM courses WHERE course_code = ?`, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return question.Course{}, ErrNotFound
		}
		return question.Course{}, fmt.Errorf("load course: %w", err)
	}
	return rowToCourse(row), nil
}

// ListCourses returns all courses ordered by code.
func (s *Store) ListCourses(ctx context.Context) ([]question.Course, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	rows := []courseRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM courses ORDER BY course_code`); err != nil {
		return nil, fmt.Errorf("select courses: %w", err)
	}
	courses := make([]question.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, rowToCourse(row))
	}
	return courses, nil
}

// UpsertQuestion inserts a question, or merges into the existing row when
// the same course already holds the same fingerprint. The persisted record
// is returned either way.
func (s *Store) UpsertQuestion(ctx context.Context, record question.StoredQuestion) (question.StoredQuestion, error) {
	if s == nil || s.db == nil {
		return question.StoredQuestion{}, errors.New("sqlite store not initialised")
	}
	if strings.TrimSpace(record.CourseID) == "" {
		return question.StoredQuestion{}, errors.New("course id required")
	}
	if strings.TrimSpace(record.QuestionHTML) == "" {
		return question.StoredQuestion{}, errors.New("question text required")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Fingerprint == "" {
		record.Fingerprint = question.Fingerprint(record.QuestionHTML, record.AnswersHTML)
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	answersJSON, err := encodeAnswers(record.AnswersHTML)
	if err != nil {
		return question.StoredQuestion{}, err
	}
	correctJSON, err := encodeAnswers(record.CorrectAnswersHTML)
	if err != nil {
		return question.StoredQuestion{}, err
	}
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO questions(
                        id, course_id, question_html, question_norm, answers_json, correct_answers_json,
                        explanation_html, fingerprint, created_at, updated_at)
                VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
                ON CONFLICT(course_id, fingerprint) DO UPDATE SET
                        correct_answers_json = CASE WHEN excluded.correct_answers_json != '[]'
                                THEN excluded.correct_answers_json ELSE questions.correct_answers_json END,
                        explanation_html = CASE WHEN excluded.explanation_html != ''
                                THEN excluded.explanation_html ELSE questions.explanation_html END,
                        updated_at = excluded.updated_at`,
			record.ID, record.CourseID, record.QuestionHTML, textnorm.Normalize(record.QuestionHTML),
			answersJSON, correctJSON,
			record.ExplanationHTML, record.Fingerprint, record.CreatedAt, record.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert question: %w", err)
		}
		return nil
	})
	if err != nil {
		return question.StoredQuestion{}, err
	}
	return s.QuestionByFingerprint(ctx, record.CourseID, record.Fingerprint)
}

// MergeQuestion folds fresher correct answers and explanation into an
// existing record, the write path taken when dedup flags a duplicate.
func (s *Store) MergeQuestion(ctx context.Context, id string, correctAnswers []string, explanation string) (question.StoredQuestion, error) {
	if s == nil || s.db == nil {
		return question.StoredQuestion{}, errors.New("sqlite store not initialised")
	}
	updates := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	if len(correctAnswers) > 0 {
		correctJSON, err := encodeAnswers(correctAnswers)
		if err != nil {
			return question.StoredQuestion{}, err
		}
		updates = append(updates, "correct_answers_json = ?")
		args = append(args, correctJSON)
	}
	if strings.TrimSpace(explanation) != "" {
		updates = append(updates, "explanation_html = ?")
		args = append(args, explanation)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE questions SET %s WHERE id = ?`, strings.Join(updates, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return question.StoredQuestion{}, fmt.Errorf("merge question: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return question.StoredQuestion{}, ErrNotFound
	}
	return s.QuestionByID(ctx, id)
}

// QuestionByID retrieves a single question record.
func (s *Store) QuestionByID(ctx context.Context, id string) (question.StoredQuestion, error) {
	if s == nil || s.db == nil {
		return question.StoredQuestion{}, errors.New("sqlite store not initialised")
	}
	var row questionRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM questions WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return question.StoredQuestion{}, ErrNotFound
		}
		return question.StoredQuestion{}, fmt.Errorf("load question: %w", err)
	}
	return rowToQuestion(row)
}

// QuestionByFingerprint probes one course for an identical-content record.
func (s *Store) QuestionByFingerprint(ctx context.Context, courseID, fingerprint string) (question.StoredQuestion, error) {
	if s == nil || s.db == nil {
		return question.StoredQuestion{}, errors.New("sqlite store not initialised")
	}
	var row questionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM questions WHERE course_id = ? AND fingerprint = ?`, courseID, fingerprint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return question.StoredQuestion{}, ErrNotFound
		}
		return question.StoredQuestion{}, fmt.Errorf("load question: %w", err)
	}
	return rowToQuestion(row)
}

// QuestionsByCourse returns a course's questions newest first. The page
// size is clamped to the dedup pool bound.
func (s *Store) QuestionsByCourse(ctx context.Context, courseID string, limit, offset int) ([]question.StoredQuestion, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	if limit <= 0 || limit > maxCoursePage {
		limit = maxCoursePage
	}
	if offset < 0 {
		offset = 0
	}
	rows := []questionRow{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM questions WHERE course_id = ?
                ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		courseID, limit, offset); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	return rowsToQuestions(rows)
}

// SearchQuestions is the fallback substring search used when the external
// index is down. It probes the normalized text column so diacritic and
// markup differences do not hide matches. Not ranked; callers re-score.
func (s *Store) SearchQuestions(ctx context.Context, courseID, term string, limit int) ([]question.StoredQuestion, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	term = textnorm.Normalize(term)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 || limit > maxCoursePage {
		limit = maxCoursePage
	}
	pattern := "%" + term + "%"
	rows := []questionRow{}
	if strings.TrimSpace(courseID) != "" {
		if err := s.db.SelectContext(ctx, &rows,
			`SELECT * FROM questions WHERE course_id = ? AND question_norm LIKE ?
                        ORDER BY created_at DESC LIMIT ?`,
			courseID, pattern, limit); err != nil {
			return nil, fmt.Errorf("search questions: %w", err)
		}
	} else {
		if err := s.db.SelectContext(ctx, &rows,
			`SELECT * FROM questions WHERE question_norm LIKE ?
                        ORDER BY created_at DESC LIMIT ?`,
			pattern, limit); err != nil {
			return nil, fmt.Errorf("search questions: %w", err)
		}
	}
	return rowsToQuestions(rows)
}

// AllQuestions pages through the whole catalog, oldest first, for index
// rebuilds.
func (s *Store) AllQuestions(ctx context.Context, limit, offset int) ([]question.StoredQuestion, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite store not initialised")
	}
	if limit <= 0 || limit > maxCoursePage {
		limit = maxCoursePage
	}
	if offset < 0 {
		offset = 0
	}
	rows := []questionRow{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM questions ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		limit, offset); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	return rowsToQuestions(rows)
}

// CountQuestions reports the catalog size.
func (s *Store) CountQuestions(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("sqlite store not initialised")
	}
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM questions`); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// CourseCodeFor resolves the course code for a course id, used when
// projecting records into the search index.
func (s *Store) CourseCodeFor(ctx context.Context, courseID string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("sqlite store not initialised")
	}
	var code string
	if err := s.db.GetContext(ctx, &code, `SELECT course_code FROM courses WHERE id = ?`, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("load course code: %w", err)
	}
	return code, nil
}
