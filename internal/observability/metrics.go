package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	stockMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zonemarket",
			Subsystem: "ledger",
			Name:      "stock_mutations_total",
			Help:      "Stock ledger mutations by zone and operation.",
		},
		[]string{"zone", "op"},
	)
	sellsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zonemarket",
			Subsystem: "ledger",
			Name:      "sells_applied_total",
			Help:      "Sell transactions applied to a zone ledger.",
		},
		[]string{"zone"},
	)
	sellLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zonemarket",
			Subsystem: "ledger",
			Name:      "sell_lines_total",
			Help:      "Individual sell lines applied to a zone ledger.",
		},
		[]string{"zone"},
	)
	syncRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zonemarket",
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Network item records serialized per trader.",
		},
		[]string{"trader", "stock_only"},
	)
	syncBatchBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zonemarket",
			Subsystem: "sync",
			Name:      "batch_bytes_total",
			Help:      "Framed batch bytes produced per trader.",
		},
		[]string{"trader"},
	)
	syncTicks = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zonemarket",
			Subsystem: "sync",
			Name:      "tick_duration_seconds",
			Help:      "Serialization tick duration per trader.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"trader"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zonemarket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zonemarket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			stockMutations, sellsApplied, sellLines,
			syncRecords, syncBatchBytes, syncTicks,
			httpRequests, httpDuration,
		)
	})
}

func RecordStockMutation(zone, op string) {
	RegisterMetrics()
	stockMutations.WithLabelValues(zone, op).Inc()
}

func RecordSell(zone string, lines int) {
	RegisterMetrics()
	sellsApplied.WithLabelValues(zone).Inc()
	sellLines.WithLabelValues(zone).Add(float64(lines))
}

func RecordSyncBatch(trader string, records, bytes int, stockOnly bool, duration time.Duration) {
	RegisterMetrics()
	syncRecords.WithLabelValues(trader, strconv.FormatBool(stockOnly)).Add(float64(records))
	syncBatchBytes.WithLabelValues(trader).Add(float64(bytes))
	syncTicks.WithLabelValues(trader).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
