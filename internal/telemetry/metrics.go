package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики HTTP API.
var (
	// HTTPRequestsTotal — количество HTTP-запросов.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "status"})
)

// Метрики процессов.
var (
	// ProcessesStarted — количество запущенных процессов.
	ProcessesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_processes_started_total",
		Help: "Total number of started processes",
	})

	// StepExecutions — количество вызовов ExecuteStep по действию и исходу.
	// outcome: advanced, completed, rejected, refused.
	StepExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_step_executions_total",
		Help: "Total number of step executions by action and outcome",
	}, []string{"action", "outcome"})
)

// Метрики проверок.
var (
	// ValidationsTotal — количество выполненных проверок по типу и результату.
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_validations_total",
		Help: "Total number of step validations by type and result",
	}, []string{"type", "result"})

	// ValidationDuration — длительность выполнения проверок.
	ValidationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_validation_duration_seconds",
		Help:    "Duration of step validations",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
)

// Метрики notifier.
var (
	// NotificationsSent — количество отправленных уведомлений по типу.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_notifications_sent_total",
		Help: "Total number of process notifications sent",
	}, []string{"kind"})
)

// Метрики очередей.
var (
	// MessagesConsumed — обработанные сообщения по очереди и исходу (ack, requeue, dead_letter).
	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_mq_messages_consumed_total",
		Help: "Total number of consumed messages by queue and disposition",
	}, []string{"queue", "disposition"})
)
