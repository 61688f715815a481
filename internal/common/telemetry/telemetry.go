// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/studyaid/quizmatch/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	indexSearchTotal     *expvar.Int
	indexSearchDegraded  *expvar.Int
	indexSearchLatencyMS *expvar.Int

	matchTotal   *expvar.Map
	bulkBatches  *expvar.Int
	bulkItems    *expvar.Int
	dedupTotal   *expvar.Map
	upsertsTotal *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		indexSearchTotal = expvar.NewInt("quizmatch_index_search_total")
		indexSearchDegraded = expvar.NewInt("quizmatch_index_search_degraded")
		indexSearchLatencyMS = expvar.NewInt("quizmatch_index_search_latency_ms")

		matchTotal = expvar.NewMap("quizmatch_match_total")
		bulkBatches = expvar.NewInt("quizmatch_bulk_batches_total")
		bulkItems = expvar.NewInt("quizmatch_bulk_items_total")
		dedupTotal = expvar.NewMap("quizmatch_dedup_total")
		upsertsTotal = expvar.NewInt("quizmatch_upserts_total")
	})
}

// StartSpan records a debug trace span around a pipeline stage.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordIndexSearch tracks coarse retrieval calls against the external index.
// A degraded call is one that failed and was resolved as an empty candidate
// list.
func RecordIndexSearch(degraded bool, duration time.Duration) {
	ensureInit()
	indexSearchTotal.Add(1)
	if degraded {
		indexSearchDegraded.Add(1)
	}
	if duration > 0 {
		indexSearchLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordMatch tracks produced match results bucketed by match type.
func RecordMatch(matchType string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(matchType))
	if key == "" {
		key = "none"
	}
	matchTotal.Add(key, 1)
}

// RecordBulkBatch tracks one batch run through the bulk pipeline.
func RecordBulkBatch(items int) {
	ensureInit()
	bulkBatches.Add(1)
	if items > 0 {
		bulkItems.Add(int64(items))
	}
}

// RecordDedup tracks duplicate decisions bucketed by the rule that fired;
// "unique" marks records that passed every rule.
func RecordDedup(rule string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(rule))
	if key == "" {
		key = "unique"
	}
	dedupTotal.Add(key, 1)
}

// RecordUpsert tracks stored question writes on the ingestion path.
func RecordUpsert(count int) {
	ensureInit()
	if count > 0 {
		upsertsTotal.Add(int64(count))
	}
}
