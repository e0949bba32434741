package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Результаты обращения к кэшу
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Операции аналитики
const (
	OpTopInfluencers   = "top_influencers"
	OpNetworkAnalysis  = "network_analysis"
	OpCreateGratitude  = "create_gratitude"
	OpGratitudeHistory = "gratitude_history"
	OpRefreshProfiles  = "refresh_profiles"
)

// Metrics содержит все метрики приложения.
// Методы безопасно вызывать на nil.
type Metrics struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// Счетчики
	cacheRequests      *prometheus.CounterVec
	operationErrors    *prometheus.CounterVec
	snapshotsPersisted prometheus.Counter
	gratitudeCreated   *prometheus.CounterVec

	// Гистограммы
	operationDuration *prometheus.HistogramVec

	// Gauge метрики
	rankedInfluencers prometheus.Gauge
}

// New создает новый экземпляр метрик на собственном реестре
func New(logger *zap.Logger) *Metrics {
	m := &Metrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),

		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_cache_requests_total",
				Help: "Обращения к кэшу аналитики",
			},
			[]string{"operation", "result"}, // result: hit, miss
		),

		operationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_operation_errors_total",
				Help: "Ошибки операций аналитики",
			},
			[]string{"operation"},
		),

		snapshotsPersisted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "network_snapshots_persisted_total",
				Help: "Сохраненные срезы анализа сети",
			},
		),

		gratitudeCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "network_gratitude_created_total",
				Help: "Созданные благодарности",
			},
			[]string{"status"}, // scheduled, sent
		),

		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "network_operation_duration_seconds",
				Help:    "Время выполнения операций аналитики в секундах",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		rankedInfluencers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "network_ranked_influencers",
				Help: "Размер последнего рассчитанного рейтинга",
			},
		),
	}

	m.registry.MustRegister(
		m.cacheRequests,
		m.operationErrors,
		m.snapshotsPersisted,
		m.gratitudeCreated,
		m.operationDuration,
		m.rankedInfluencers,
	)

	return m
}

// RecordCache записывает попадание или промах кэша
func (m *Metrics) RecordCache(operation string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheRequests.WithLabelValues(operation, result).Inc()
}

// ObserveOperation записывает длительность операции и ошибку, если она была
func (m *Metrics) ObserveOperation(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		m.operationErrors.WithLabelValues(operation).Inc()
		m.logger.Debug("операция завершилась ошибкой", zap.String("operation", operation), zap.Error(err))
	}
}

// RecordSnapshot записывает сохраненный срез
func (m *Metrics) RecordSnapshot() {
	if m == nil {
		return
	}
	m.snapshotsPersisted.Inc()
}

// RecordGratitude записывает созданную благодарность
func (m *Metrics) RecordGratitude(status string) {
	if m == nil {
		return
	}
	m.gratitudeCreated.WithLabelValues(status).Inc()
}

// SetRankedInfluencers устанавливает размер рейтинга
func (m *Metrics) SetRankedInfluencers(count int) {
	if m == nil {
		return
	}
	m.rankedInfluencers.Set(float64(count))
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP handler для метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
