package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Workflow metrics
	WorkflowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_workflow_runs_total",
			Help: "Total number of workflow runs by terminal status",
		},
		[]string{"status"}, // status: succeeded|failed|escalated
	)

	WorkflowDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brandpulse_workflow_duration_seconds",
			Help:    "End-to-end workflow run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	WorkflowSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_workflow_steps_total",
			Help: "Total number of recorded workflow steps by outcome",
		},
		[]string{"step", "outcome"}, // outcome: completed|failed|skipped|cancelled
	)

	WorkflowStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandpulse_workflow_step_duration_seconds",
			Help:    "Workflow step duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"step"},
	)

	CrisisScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brandpulse_crisis_score",
			Help:    "Distribution of computed crisis scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	DocumentsCollected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brandpulse_documents_collected",
			Help:    "Number of documents collected per run",
			Buckets: []float64{0, 1, 3, 5, 10, 15, 20, 25},
		},
	)

	// Approval metrics
	ApprovalDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_approval_decisions_total",
			Help: "Total number of approval decisions",
		},
		[]string{"status", "reviewer"},
	)

	ApprovalRiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "brandpulse_approval_risk_score",
			Help:    "Distribution of composite approval risk scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	// Adapter metrics
	AdapterCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_adapter_calls_total",
			Help: "Total number of external adapter calls",
		},
		[]string{"adapter", "status"}, // status: success|error
	)

	AdapterLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandpulse_adapter_latency_seconds",
			Help:    "External adapter call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"adapter"},
	)

	AITokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_ai_prompt_tokens_total",
			Help: "Prompt tokens sent to LLM providers",
		},
		[]string{"provider", "model"},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandpulse_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brandpulse_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Infrastructure metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandpulse_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_kafka_messages_total",
			Help: "Kafka messages by topic and status (success, error, consumed, read_error)",
		},
		[]string{"topic", "status"},
	)

	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "brandpulse_stream_connections",
			Help: "Current number of WebSocket step-stream subscribers",
		},
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			WorkflowRuns,
			WorkflowDuration,
			WorkflowSteps,
			WorkflowStepDuration,
			CrisisScore,
			DocumentsCollected,
			ApprovalDecisions,
			ApprovalRiskScore,
			AdapterCalls,
			AdapterLatency,
			AITokens,
			WorkerExecutions,
			WorkerDuration,
			WorkerLastRun,
			DBQueries,
			DBQueryDuration,
			KafkaMessages,
			StreamConnections,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, status(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).Set(float64(time.Now().Unix()))
}

// RecordStep records one workflow step result
func RecordStep(step, outcome string, duration time.Duration) {
	WorkflowSteps.WithLabelValues(step, outcome).Inc()
	WorkflowStepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordAdapterCall records an external adapter call
func RecordAdapterCall(adapter string, latency time.Duration, err error) {
	AdapterCalls.WithLabelValues(adapter, status(err)).Inc()
	AdapterLatency.WithLabelValues(adapter).Observe(latency.Seconds())
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	DBQueries.WithLabelValues(database, operation, status(err)).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
