package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

var (
	// Registry хранит коллекторы приложения.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Общее число обработанных HTTP запросов.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Длительность HTTP запросов.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	ConnectionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "created_total",
			Help:      "Созданные связи клиент-профессионал.",
		},
		[]string{"payment_required"},
	)

	ConnectionNumberRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "number_retries_total",
			Help:      "Повторы присвоения номера связи после конфликта уникальности.",
		},
	)

	PaymentsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "payments_recorded_total",
			Help:      "Проведённые оплаты комиссии.",
		},
	)

	ReviewsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reviews",
			Name:      "written_total",
			Help:      "Изменения отзывов по типу операции.",
		},
		[]string{"action"},
	)

	RatingRecomputations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reviews",
			Name:      "rating_recomputations_total",
			Help:      "Пересчёты агрегированного рейтинга профессионалов.",
		},
	)
)

func init() {
	Registry.MustRegister(
		HTTPRequests,
		HTTPDuration,
		ConnectionsCreated,
		ConnectionNumberRetries,
		PaymentsRecorded,
		ReviewsWritten,
		RatingRecomputations,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler отдаёт зарегистрированные метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
