// File path: internal/api/questions_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/question"
)

func (s *Server) handleUpsertQuestion(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req upsertQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: question upsert decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	course, err := s.resolveCourse(r, req.CourseCode, req.CourseName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stored, err := s.engine.BulkDeduplicateUpsert(r.Context(), []question.IngestQuestion{req.Question}, course.ID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	if len(stored) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question text is empty after normalization"))
		return
	}
	logger.Info("api: question upserted", "course", course.CourseCode, "id", stored[0].ID)
	writeJSON(w, http.StatusOK, stored[0])
}

func (s *Server) handleBulkUpsert(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req bulkUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: bulk upsert decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Questions) > s.maxBatch {
		writeError(w, http.StatusBadRequest, fmt.Errorf("batch of %d exceeds limit %d", len(req.Questions), s.maxBatch))
		return
	}
	course, err := s.resolveCourse(r, req.CourseCode, req.CourseName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logger.Info("api: bulk upsert requested", "course", course.CourseCode, "questions", len(req.Questions))
	stored, err := s.engine.BulkDeduplicateUpsert(r.Context(), req.Questions, course.ID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	logger.Info("api: bulk upsert completed", "course", course.CourseCode, "stored", len(stored))
	writeJSON(w, http.StatusOK, bulkUpsertResponse{
		CourseID:  course.ID,
		Stored:    len(stored),
		Questions: stored,
	})
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question id required"))
		return
	}
	record, err := s.engine.Question(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// resolveCourse upserts the course row for an ingestion request so callers
// can submit questions without creating the course first.
func (s *Server) resolveCourse(r *http.Request, code, name string) (question.Course, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return question.Course{}, fmt.Errorf("courseCode is required")
	}
	course, err := s.catalog.EnsureCourse(r.Context(), code, name)
	if err != nil {
		return question.Course{}, fmt.Errorf("resolve course %q: %w", code, err)
	}
	return course, nil
}
