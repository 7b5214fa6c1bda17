package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Deal metrics
	DealsCreated  prometheus.Counter
	DealsAccepted prometheus.Counter
	DealsClosed   *prometheus.CounterVec
	DealAmount    prometheus.Histogram
	DealErrors    *prometheus.CounterVec

	// Ledger metrics
	LedgerEntriesCreated *prometheus.CounterVec
	ChainVerifications   *prometheus.CounterVec

	// Settlement metrics
	SettlementRuns     *prometheus.CounterVec
	SettlementDeals    *prometheus.CounterVec
	SettlementDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsCreated   prometheus.Counter
	NotificationsDelivered prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections prometheus.Gauge
	DBErrors      *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec
	AuthFailures *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Deal metrics
		DealsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanex_deals_created_total",
			Help: "Total number of deals created",
		}),
		DealsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanex_deals_accepted_total",
			Help: "Total number of deals accepted by debtors",
		}),
		DealsClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_deals_closed_total",
				Help: "Total number of deals that reached a terminal status",
			},
			[]string{"status"},
		),
		DealAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanex_deal_amount",
			Help:    "Deal principal amounts",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
		}),
		DealErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_deal_errors_total",
				Help: "Total number of deal operation errors by type",
			},
			[]string{"error_type"},
		),

		// Ledger metrics
		LedgerEntriesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_ledger_entries_total",
				Help: "Total balance log entries created by event",
			},
			[]string{"event"},
		),
		ChainVerifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_chain_verifications_total",
				Help: "Total ledger chain verifications by result",
			},
			[]string{"result"},
		),

		// Settlement metrics
		SettlementRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_settlement_runs_total",
				Help: "Total settlement batch runs by interval and result",
			},
			[]string{"interval", "result"},
		),
		SettlementDeals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_settlement_deals_total",
				Help: "Total deals processed by settlement runs by outcome",
			},
			[]string{"interval", "outcome"},
		),
		SettlementDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanex_settlement_duration_seconds",
				Help:    "Duration of settlement batch runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"interval"},
		),

		// Notification metrics
		NotificationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanex_notifications_created_total",
			Help: "Total number of notifications created",
		}),
		NotificationsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanex_notifications_delivered_total",
			Help: "Total number of notifications delivered",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanex_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_db_queries_total",
				Help: "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanex_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loanex_db_connections",
			Help: "Current number of database connections",
		}),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),
		AuthFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanex_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),
	}
}
