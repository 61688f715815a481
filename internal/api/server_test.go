// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/studyaid/quizmatch/internal/data/orchestrator"
	"github.com/studyaid/quizmatch/internal/question"
	"github.com/studyaid/quizmatch/internal/searchindex"
)

type stubIndex struct {
	hits    []searchindex.Hit
	indexed []searchindex.Doc
	queries []searchindex.SearchQuery
}

func (s *stubIndex) Available() bool { return true }

func (s *stubIndex) EnsureIndex(ctx context.Context) error { return nil }

func (s *stubIndex) IndexQuestion(ctx context.Context, doc searchindex.Doc) error {
	s.indexed = append(s.indexed, doc)
	return nil
}

func (s *stubIndex) BulkIndex(ctx context.Context, docs []searchindex.Doc) error {
	s.indexed = append(s.indexed, docs...)
	return nil
}

func (s *stubIndex) Delete(ctx context.Context, id string) error { return nil }

func (s *stubIndex) Stats(ctx context.Context) (searchindex.Stats, error) {
	return searchindex.Stats{Index: "quiz_questions", DocCount: int64(len(s.indexed)), Available: true}, nil
}

func (s *stubIndex) Search(ctx context.Context, query searchindex.SearchQuery) ([]searchindex.Hit, error) {
	s.queries = append(s.queries, query)
	return s.hits, nil
}

func newTestServer(t *testing.T, opts ...orchestrator.Option) (*Server, *stubIndex) {
	t.Helper()
	index := &stubIndex{}
	all := append([]orchestrator.Option{
		orchestrator.WithSearchIndex(index),
		orchestrator.WithCacheDisabled(),
	}, opts...)
	orch, err := orchestrator.New(
		context.Background(),
		orchestrator.Config{SQLitePath: filepath.Join(t.TempDir(), "quizmatch.db")},
		all...,
	)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(func() { orch.Close() })
	srv, err := NewServer(orch, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, index
}

func doJSON(t *testing.T, srv *Server, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Fatalf("healthz body %q", rr.Body.String())
	}
}

func TestCreateAndListCourses(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/v1/courses", createCourseRequest{CourseCode: "cs101", CourseName: "Nhập môn lập trình"})
	if rr.Code != http.StatusOK {
		t.Fatalf("create course status %d: %s", rr.Code, rr.Body.String())
	}
	var course question.Course
	decodeBody(t, rr, &course)
	if course.CourseCode != "CS101" {
		t.Fatalf("expected uppercased code, got %q", course.CourseCode)
	}

	rr = doJSON(t, srv, http.MethodPost, "/v1/courses", createCourseRequest{CourseName: "no code"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing code, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/v1/courses", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list courses status %d", rr.Code)
	}
	var courses []question.Course
	decodeBody(t, rr, &courses)
	if len(courses) != 1 {
		t.Fatalf("expected one course, got %d", len(courses))
	}
}

func TestBulkUpsertAndCourseQuestions(t *testing.T) {
	srv, index := newTestServer(t)

	req := bulkUpsertRequest{
		CourseCode: "CS101",
		Questions: []question.IngestQuestion{
			{
				QuestionHTML:       "<p>Thuật toán nào là sắp xếp ổn định?</p>",
				AnswersHTML:        []string{"Merge sort", "Quick sort"},
				CorrectAnswersHTML: []string{"Merge sort"},
			},
			{
				QuestionHTML: "<p>Độ phức tạp của tìm kiếm nhị phân là gì?</p>",
				AnswersHTML:  []string{"O(log n)", "O(n)"},
			},
		},
	}
	rr := doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk upsert status %d: %s", rr.Code, rr.Body.String())
	}
	var resp bulkUpsertResponse
	decodeBody(t, rr, &resp)
	if resp.Stored != 2 {
		t.Fatalf("expected 2 stored, got %d", resp.Stored)
	}
	if len(index.indexed) != 2 {
		t.Fatalf("expected 2 index docs, got %d", len(index.indexed))
	}
	for _, doc := range index.indexed {
		if doc.CourseCode != "CS101" {
			t.Fatalf("index doc missing course code: %+v", doc)
		}
	}

	rr = doJSON(t, srv, http.MethodGet, "/v1/courses/CS101/questions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("course questions status %d: %s", rr.Code, rr.Body.String())
	}
	var page courseQuestionsResponse
	decodeBody(t, rr, &page)
	if len(page.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(page.Questions))
	}
	if page.Course.CourseCode != "CS101" {
		t.Fatalf("unexpected course in response: %+v", page.Course)
	}

	rr = doJSON(t, srv, http.MethodGet, "/v1/courses/MATH1/questions", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown course, got %d", rr.Code)
	}
}

func TestBulkUpsertDeduplicatesRepeats(t *testing.T) {
	srv, _ := newTestServer(t)

	item := question.IngestQuestion{
		QuestionHTML: "<p>Giao thức nào hoạt động ở tầng vận chuyển?</p>",
		AnswersHTML:  []string{"TCP", "IP", "HTTP"},
	}
	req := bulkUpsertRequest{
		CourseCode: "NET201",
		Questions:  []question.IngestQuestion{item, item},
	}
	rr := doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk upsert status %d: %s", rr.Code, rr.Body.String())
	}
	var resp bulkUpsertResponse
	decodeBody(t, rr, &resp)
	if resp.Stored != 2 {
		t.Fatalf("expected a record per item, got %d", resp.Stored)
	}
	if resp.Questions[0].ID != resp.Questions[1].ID {
		t.Fatal("expected repeated item to merge into the same record")
	}

	rr = doJSON(t, srv, http.MethodGet, "/v1/courses/NET201/questions", nil)
	var page courseQuestionsResponse
	decodeBody(t, rr, &page)
	if len(page.Questions) != 1 {
		t.Fatalf("expected a single stored question, got %d", len(page.Questions))
	}
}

func TestBulkUpsertValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", bulkUpsertRequest{
		Questions: []question.IngestQuestion{{QuestionHTML: "<p>q</p>"}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing course code, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", bulkUpsertRequest{CourseCode: "CS101"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", rr.Code)
	}
}

func TestMatchExactThroughStoreFallback(t *testing.T) {
	srv, _ := newTestServer(t)

	seed := bulkUpsertRequest{
		CourseCode: "CS101",
		Questions: []question.IngestQuestion{{
			QuestionHTML:       "<p>Thuật toán nào là sắp xếp ổn định?</p>",
			AnswersHTML:        []string{"Merge sort", "Quick sort"},
			CorrectAnswersHTML: []string{"Merge sort"},
		}},
	}
	if rr := doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", seed); rr.Code != http.StatusOK {
		t.Fatalf("seed status %d: %s", rr.Code, rr.Body.String())
	}

	rr := doJSON(t, srv, http.MethodPost, "/v1/match", matchRequest{
		Question: question.QueryQuestion{
			QuestionHTML: "Thuật toán nào là SẮP XẾP ổn định?",
			AnswersHTML:  []string{"Merge sort", "Quick sort"},
		},
		Options: matchOptions{SkipCoarse: true},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("match status %d: %s", rr.Code, rr.Body.String())
	}
	var result question.MatchResult
	decodeBody(t, rr, &result)
	if !result.HasMatch {
		t.Fatalf("expected a match: %+v", result)
	}
	if result.MatchType != question.MatchExact {
		t.Fatalf("expected exact match, got %q", result.MatchType)
	}
	if result.ConfidenceScore != 1 {
		t.Fatalf("expected confidence 1, got %v", result.ConfidenceScore)
	}
	if result.BestMatch == nil || len(result.BestMatch.CorrectAnswersHTML) != 1 {
		t.Fatalf("expected correct answers on best match: %+v", result.BestMatch)
	}
}

func TestMatchUsesIndexHits(t *testing.T) {
	srv, index := newTestServer(t)
	index.hits = []searchindex.Hit{{
		ID:           "q-1",
		Score:        12.5,
		CourseCode:   "CS101",
		QuestionText: "thuat toan nao la sap xep on dinh?",
		AnswersText:  "merge sort|quick sort",
	}}

	rr := doJSON(t, srv, http.MethodPost, "/v1/match", matchRequest{
		Question: question.QueryQuestion{
			QuestionHTML: "<p>Thuật toán nào là sắp xếp ổn định?</p>",
			AnswersHTML:  []string{"Merge sort", "Quick sort"},
		},
		Options: matchOptions{CourseCode: "CS101"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("match status %d: %s", rr.Code, rr.Body.String())
	}
	var result question.MatchResult
	decodeBody(t, rr, &result)
	if !result.HasMatch || result.MatchType != question.MatchExact {
		t.Fatalf("expected exact match from index hit: %+v", result)
	}
	if len(index.queries) != 1 {
		t.Fatalf("expected one coarse query, got %d", len(index.queries))
	}
	patterns := index.queries[0].CoursePatterns
	if len(patterns) == 0 || patterns[0] != "CS101" {
		t.Fatalf("expected expanded course patterns, got %v", patterns)
	}
}

func TestMatchValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/v1/match", matchRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty question, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/v1/match", matchRequest{
		Question: question.QueryQuestion{QuestionHTML: "<p>q</p>"},
		Options:  matchOptions{Threshold: 1.5},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range threshold, got %d", rr.Code)
	}
}

func TestBulkMatchLimits(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/v1/match/bulk", bulkMatchRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", rr.Code)
	}

	oversized := make([]question.QueryQuestion, 501)
	for i := range oversized {
		oversized[i] = question.QueryQuestion{QuestionHTML: fmt.Sprintf("<p>câu hỏi %d</p>", i)}
	}
	rr = doJSON(t, srv, http.MethodPost, "/v1/match/bulk", bulkMatchRequest{Questions: oversized})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized batch, got %d", rr.Code)
	}
}

func TestBulkMatchResults(t *testing.T) {
	srv, _ := newTestServer(t)

	seed := bulkUpsertRequest{
		CourseCode: "CS101",
		Questions: []question.IngestQuestion{{
			QuestionHTML: "<p>Ngăn xếp hoạt động theo nguyên tắc nào?</p>",
			AnswersHTML:  []string{"LIFO", "FIFO"},
		}},
	}
	if rr := doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", seed); rr.Code != http.StatusOK {
		t.Fatalf("seed status %d", rr.Code)
	}

	rr := doJSON(t, srv, http.MethodPost, "/v1/match/bulk", bulkMatchRequest{
		Questions: []question.QueryQuestion{
			{QuestionHTML: "Ngăn xếp hoạt động theo nguyên tắc nào?", AnswersHTML: []string{"LIFO", "FIFO"}},
			{QuestionHTML: "Một câu hỏi hoàn toàn khác về hóa học hữu cơ"},
		},
		Options: matchOptions{SkipCoarse: true},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk match status %d: %s", rr.Code, rr.Body.String())
	}
	var result question.BulkResult
	decodeBody(t, rr, &result)
	if result.TotalQuestions != 2 {
		t.Fatalf("expected 2 totals, got %d", result.TotalQuestions)
	}
	if result.MatchedQuestions != 1 {
		t.Fatalf("expected 1 matched, got %d", result.MatchedQuestions)
	}
	if len(result.Results) != 2 || result.Results[0].QuestionIndex != 0 || result.Results[1].QuestionIndex != 1 {
		t.Fatalf("results misaligned: %+v", result.Results)
	}
}

func TestQuestionByID(t *testing.T) {
	srv, _ := newTestServer(t)

	seed := bulkUpsertRequest{
		CourseCode: "CS101",
		Questions: []question.IngestQuestion{{
			QuestionHTML: "<p>HTTP là viết tắt của gì?</p>",
			AnswersHTML:  []string{"HyperText Transfer Protocol"},
		}},
	}
	rr := doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", seed)
	var resp bulkUpsertResponse
	decodeBody(t, rr, &resp)
	id := resp.Questions[0].ID

	rr = doJSON(t, srv, http.MethodGet, "/v1/questions/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("question status %d: %s", rr.Code, rr.Body.String())
	}
	var record question.StoredQuestion
	decodeBody(t, rr, &record)
	if record.ID != id {
		t.Fatalf("unexpected record: %+v", record)
	}

	rr = doJSON(t, srv, http.MethodGet, "/v1/questions/missing-id", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rr.Code)
	}
}

func TestReindexAndStats(t *testing.T) {
	srv, index := newTestServer(t)

	seed := bulkUpsertRequest{
		CourseCode: "CS101",
		Questions: []question.IngestQuestion{
			{QuestionHTML: "<p>Câu hỏi một</p>", AnswersHTML: []string{"A"}},
			{QuestionHTML: "<p>Câu hỏi hai</p>", AnswersHTML: []string{"B"}},
		},
	}
	if rr := doJSON(t, srv, http.MethodPost, "/v1/questions/bulk-upsert", seed); rr.Code != http.StatusOK {
		t.Fatalf("seed status %d", rr.Code)
	}
	index.indexed = nil

	rr := doJSON(t, srv, http.MethodPost, "/v1/index/reindex", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reindex status %d: %s", rr.Code, rr.Body.String())
	}
	var resp reindexResponse
	decodeBody(t, rr, &resp)
	if resp.Indexed != 2 {
		t.Fatalf("expected 2 indexed, got %d", resp.Indexed)
	}

	rr = doJSON(t, srv, http.MethodGet, "/v1/index/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status %d", rr.Code)
	}
	var stats searchindex.Stats
	decodeBody(t, rr, &stats)
	if stats.DocCount != 2 {
		t.Fatalf("expected doc count 2, got %d", stats.DocCount)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/v1/logs", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("logs status %d", rr.Code)
	}
	var payload map[string]json.RawMessage
	decodeBody(t, rr, &payload)
	if _, ok := payload["entries"]; !ok {
		t.Fatal("expected entries field in logs payload")
	}
}
