// File path: internal/api/courses_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/studyaid/quizmatch/internal/common"
)

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.catalog.ListCourses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: course decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.CourseCode) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("courseCode is required"))
		return
	}
	course, err := s.catalog.EnsureCourse(r.Context(), req.CourseCode, req.CourseName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("api: course ensured", "code", course.CourseCode, "id", course.ID)
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleCourseQuestions(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("course code required"))
		return
	}
	course, err := s.catalog.CourseByCode(r.Context(), code)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	questions, err := s.catalog.QuestionsByCourse(r.Context(), course.ID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, courseQuestionsResponse{
		Course:    course,
		Questions: questions,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
