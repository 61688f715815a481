// File path: internal/api/match_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/studyaid/quizmatch/internal/common"
)

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: match decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question.QuestionHTML) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}
	result, err := s.engine.MatchSingle(r.Context(), req.Question, req.Options.engineOptions())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	logger.Info("api: match completed", "has_match", result.HasMatch, "confidence", result.ConfidenceScore, "type", result.MatchType)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMatch(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req bulkMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: bulk match decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Questions) > s.maxBatch {
		writeError(w, http.StatusBadRequest, fmt.Errorf("batch of %d exceeds limit %d", len(req.Questions), s.maxBatch))
		return
	}
	logger.Info("api: bulk match requested", "questions", len(req.Questions), "course", req.Options.CourseCode)
	result, err := s.engine.BulkMatch(r.Context(), req.Questions, req.Options.engineOptions())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	logger.Info("api: bulk match completed", "matched", result.MatchedQuestions, "total", result.TotalQuestions, "duration_ms", result.ProcessingTimeMs)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkSearch(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req bulkMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: bulk search decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Questions) > s.maxBatch {
		writeError(w, http.StatusBadRequest, fmt.Errorf("batch of %d exceeds limit %d", len(req.Questions), s.maxBatch))
		return
	}
	result, err := s.engine.BulkSearch(r.Context(), req.Questions, req.Options.engineOptions())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	logger.Info("api: bulk search completed", "matched", result.MatchedQuestions, "total", result.TotalQuestions)
	writeJSON(w, http.StatusOK, result)
}
