package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
	HTTPPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_panics_total",
			Help: "Handler panics recovered by the HTTP stack",
		},
		[]string{"route"},
	)

	// Ledger writes
	RechargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_recharges_total",
			Help: "Recharge calls by outcome",
		},
		[]string{"outcome"}, // created|duplicated|rejected
	)
	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_reservations_total",
			Help: "Reservation calls by outcome",
		},
		[]string{"outcome"}, // created|duplicated|insufficient|rejected
	)

	// Settlement jobs
	SweepItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_sweep_items_total",
			Help: "Blocked transactions evaluated by the reconciliation sweep",
		},
		[]string{"result"}, // consumed|released|pending|skipped|failed
	)
	BackfillItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_backfill_items_total",
			Help: "Consumed transactions evaluated by the correction backfill",
		},
		[]string{"result"}, // corrected|kept|failed
	)
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credit_job_duration_seconds",
			Help:    "Duration of settlement job runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"job"},
	)

	// External shipment system
	ExternalCallFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipment_api_failures_total",
			Help: "Failed calls to the shipment-issuance system",
		},
		[]string{"op"}, // status|sync_balance
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			HTTPLatency,
			HTTPPanics,
			RechargesTotal,
			ReservationsTotal,
			SweepItemsTotal,
			BackfillItemsTotal,
			JobDuration,
			ExternalCallFailures,
			WorkerQueueDepth,
		)
	})
}
