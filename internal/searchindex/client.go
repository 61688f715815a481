// File path: internal/searchindex/client.go
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/common/telemetry"
)

// Index is the coarse retrieval surface. Implementations trade recall for
// speed; precision is the ranker's job downstream.
type Index interface {
	Available() bool
	EnsureIndex(ctx context.Context) error
	Search(ctx context.Context, query SearchQuery) ([]Hit, error)
	IndexQuestion(ctx context.Context, doc Doc) error
	BulkIndex(ctx context.Context, docs []Doc) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
}

// Doc is the denormalized projection of a stored question kept in the index.
// Answers travel as a single "|" joined field so the index scores them as
// one bag of terms.
type Doc struct {
	ID              string `json:"-"`
	CourseCode      string `json:"course_code"`
	QuestionText    string `json:"question_text"`
	AnswersText     string `json:"answers_text"`
	ExplanationText string `json:"explanation_text,omitempty"`
}

// SearchQuery carries normalized query text plus the course wildcard
// patterns produced by ExpandCourseCode. Size zero falls back to the
// configured coarse size.
type SearchQuery struct {
	QuestionText   string
	AnswersText    string
	CoursePatterns []string
	Size           int
}

type Hit struct {
	ID              string
	Score           float64
	CourseCode      string
	QuestionText    string
	AnswersText     string
	ExplanationText string
}

// Answers splits the joined answers field back into the stored answer set.
func (h Hit) Answers() []string {
	if strings.TrimSpace(h.AnswersText) == "" {
		return nil
	}
	return strings.Split(h.AnswersText, "|")
}

type Stats struct {
	Index     string `json:"index"`
	DocCount  int64  `json:"docCount"`
	Available bool   `json:"available"`
}

type Client struct {
	httpClient *http.Client
	transport  *http.Transport

	baseURL   string
	index     string
	apiKey    string
	available bool

	cfg Config

	mu sync.RWMutex
}

func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// New constructs a client using the provided configuration. Failure to reach
// the index at startup is not fatal; the client stays degraded and retries
// readiness on the next call.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg.applyDefaults()
	baseURL := fmt.Sprintf("%s://%s:%s", cfg.Scheme, cfg.Host, cfg.Port)
	logger := common.Logger()
	logger.Info(
		"searchindex: initializing client",
		"host", cfg.Host,
		"port", cfg.Port,
		"index", cfg.Index,
		"timeout", cfg.Timeout,
	)

	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		MaxConnsPerHost:     cfg.HTTPMaxConnsPerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      cfg.Index,
		apiKey:     cfg.APIKey,
		cfg:        cfg,
	}

	if err := client.ensureReady(ctx); err != nil {
		logger.Warn("searchindex: initialization failed", "index", cfg.Index, "error", err)
		return client, nil
	}
	logger.Info("searchindex: connection established", "index", cfg.Index)
	return client, nil
}

func (c *Client) Available() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

func (c *Client) IndexName() string {
	if c == nil {
		return ""
	}
	return c.index
}

func (c *Client) ensureReady(ctx context.Context) error {
	if c == nil {
		return errors.New("search index client not configured")
	}
	c.mu.RLock()
	available := c.available
	c.mu.RUnlock()
	if available {
		return nil
	}
	const maxAttempts = 3
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = c.health(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			c.setAvailable(false)
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
	}
	if err != nil {
		c.setAvailable(false)
		return err
	}
	if err = c.ensureMapping(ctx); err != nil {
		c.setAvailable(false)
		return err
	}
	c.setAvailable(true)
	return nil
}

func (c *Client) setAvailable(v bool) {
	c.mu.Lock()
	c.available = v
	c.mu.Unlock()
}

// EnsureIndex creates the question index with its field mappings when it
// does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if !c.Available() {
		return errors.New("search index unavailable")
	}
	return nil
}

func (c *Client) ensureMapping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(c.index))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil); err == nil {
		return nil
	} else if !errors.Is(err, errNotFound) {
		return err
	}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"course_code":      map[string]interface{}{"type": "keyword"},
				"question_text":    map[string]interface{}{"type": "text"},
				"answers_text":     map[string]interface{}{"type": "text"},
				"explanation_text": map[string]interface{}{"type": "text"},
			},
		},
	}
	if err := c.doRequest(ctx, http.MethodPut, endpoint, mapping, nil); err != nil {
		if errors.Is(err, errConflict) {
			return nil
		}
		return err
	}
	return nil
}

// Search runs the coarse recall query: a should clause per field with the
// question text boosted highest, scoped by course wildcard filters when
// patterns are present.
func (c *Client) Search(ctx context.Context, query SearchQuery) ([]Hit, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}
	if !c.Available() {
		return nil, errors.New("search index unavailable")
	}
	size := query.Size
	if size <= 0 {
		size = c.cfg.CoarseSize
	}
	should := make([]map[string]interface{}, 0, 3)
	if strings.TrimSpace(query.QuestionText) != "" {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"question_text": map[string]interface{}{"query": query.QuestionText, "boost": 2.0},
			},
		})
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"explanation_text": map[string]interface{}{"query": query.QuestionText, "boost": 1.2},
			},
		})
	}
	if strings.TrimSpace(query.AnswersText) != "" {
		should = append(should, map[string]interface{}{
			"match": map[string]interface{}{
				"answers_text": map[string]interface{}{"query": query.AnswersText, "boost": 1.5},
			},
		})
	}
	if len(should) == 0 {
		return nil, errors.New("empty search query")
	}
	boolQuery := map[string]interface{}{
		"should":               should,
		"minimum_should_match": 1,
	}
	if len(query.CoursePatterns) > 0 {
		wildcards := make([]map[string]interface{}, 0, len(query.CoursePatterns))
		for _, pattern := range query.CoursePatterns {
			wildcards = append(wildcards, map[string]interface{}{
				"wildcard": map[string]interface{}{
					"course_code": map[string]interface{}{
						"value":            pattern + "*",
						"case_insensitive": true,
					},
				},
			})
		}
		boolQuery["filter"] = []map[string]interface{}{
			{"bool": map[string]interface{}{"should": wildcards, "minimum_should_match": 1}},
		}
	}
	body := map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
	}
	endpoint := fmt.Sprintf("%s/%s/_search", c.baseURL, url.PathEscape(c.index))
	var resp struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source Doc     `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	start := time.Now()
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		telemetry.RecordIndexSearch(true, time.Since(start))
		c.setAvailable(false)
		return nil, err
	}
	telemetry.RecordIndexSearch(false, time.Since(start))
	hits := make([]Hit, 0, len(resp.Hits.Hits))
	for _, raw := range resp.Hits.Hits {
		hits = append(hits, Hit{
			ID:              raw.ID,
			Score:           raw.Score,
			CourseCode:      raw.Source.CourseCode,
			QuestionText:    raw.Source.QuestionText,
			AnswersText:     raw.Source.AnswersText,
			ExplanationText: raw.Source.ExplanationText,
		})
	}
	return hits, nil
}

func (c *Client) IndexQuestion(ctx context.Context, doc Doc) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if !c.Available() {
		return errors.New("search index unavailable")
	}
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("document id required")
	}
	endpoint := fmt.Sprintf("%s/%s/_doc/%s", c.baseURL, url.PathEscape(c.index), url.PathEscape(doc.ID))
	return c.doRequest(ctx, http.MethodPut, endpoint, doc, nil)
}

// BulkIndex writes documents through the ndjson bulk endpoint, one action
// line per document.
func (c *Client) BulkIndex(ctx context.Context, docs []Doc) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if !c.Available() {
		return errors.New("search index unavailable")
	}
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" {
			return errors.New("document id required")
		}
		action := map[string]interface{}{
			"index": map[string]interface{}{"_index": c.index, "_id": doc.ID},
		}
		if err := encoder.Encode(action); err != nil {
			return err
		}
		if err := encoder.Encode(doc); err != nil {
			return err
		}
	}
	endpoint := fmt.Sprintf("%s/_bulk", c.baseURL)
	var resp struct {
		Errors bool `json:"errors"`
	}
	if err := c.doRaw(ctx, http.MethodPost, endpoint, buf.Bytes(), "application/x-ndjson", &resp); err != nil {
		return err
	}
	if resp.Errors {
		return errors.New("bulk indexing reported item failures")
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.ensureReady(ctx); err != nil {
		return err
	}
	if !c.Available() {
		return errors.New("search index unavailable")
	}
	endpoint := fmt.Sprintf("%s/%s/_doc/%s", c.baseURL, url.PathEscape(c.index), url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		if errors.Is(err, errNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Index: c.IndexName()}
	if err := c.ensureReady(ctx); err != nil {
		return stats, err
	}
	if !c.Available() {
		return stats, errors.New("search index unavailable")
	}
	endpoint := fmt.Sprintf("%s/%s/_count", c.baseURL, url.PathEscape(c.index))
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return stats, err
	}
	stats.DocCount = resp.Count
	stats.Available = true
	return stats, nil
}

var _ Index = (*Client)(nil)

var (
	errNotFound = errors.New("resource not found")
	errConflict = errors.New("resource conflict")
)

func (c *Client) health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/_cluster/health", c.baseURL)
	return c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = data
	}
	return c.doRaw(ctx, method, endpoint, payload, "application/json", out)
}

func (c *Client) doRaw(ctx context.Context, method, endpoint string, body []byte, contentType string, out interface{}) error {
	if c == nil {
		return errors.New("search index client not configured")
	}
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("ApiKey %s", c.apiKey))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode == http.StatusConflict {
		return errConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("search index %s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	return decoder.Decode(out)
}

// Close releases pooled resources associated with the client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
