// File path: internal/api/index_handler.go
package api

import (
	"fmt"
	"net/http"

	"github.com/studyaid/quizmatch/internal/common"
)

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("search index not configured"))
		return
	}
	logger.Info("api: reindex requested")
	indexed, err := s.engine.Reindex(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("api: reindex completed", "indexed", indexed)
	writeJSON(w, http.StatusOK, reindexResponse{Indexed: indexed})
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("search index not configured"))
		return
	}
	stats, err := s.engine.IndexStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := append([]common.LogEntry(nil), common.LogEntries()...)
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
