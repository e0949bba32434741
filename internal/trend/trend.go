package trend

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"surecrm-network/pkg/models"
)

// DefaultMonths длина ряда по умолчанию
const DefaultMonths = 6

// MonthLayout формат ключа месяца
const MonthLayout = "2006-01"

// MonthlySource возвращает значения метрики по месяцам начиная с from.
// Ключ отображения — месяц в формате YYYY-MM.
type MonthlySource func(ctx context.Context, from time.Time) (map[string]float64, error)

// Aggregator строит месячные ряды фиксированной длины
type Aggregator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewAggregator создает агрегатор; nil clock означает time.Now
func NewAggregator(logger *zap.Logger, clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{
		logger: logger,
		now:    clock,
	}
}

// Start возвращает начало самого старого месяца ряда длиной months
func (a *Aggregator) Start(months int) time.Time {
	if months <= 0 {
		months = DefaultMonths
	}
	now := a.now()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return current.AddDate(0, -(months - 1), 0)
}

// Months возвращает ключи месяцев от самого старого до текущего
func (a *Aggregator) Months(months int) []string {
	if months <= 0 {
		months = DefaultMonths
	}
	start := a.Start(months)
	keys := make([]string, months)
	for i := 0; i < months; i++ {
		keys[i] = start.AddDate(0, i, 0).Format(MonthLayout)
	}
	return keys
}

// Series строит ряд метрики одним сгруппированным запросом.
// При ошибке источника возвращается ряд из нулей.
func (a *Aggregator) Series(ctx context.Context, metric string, months int, src MonthlySource) []models.TrendPoint {
	keys := a.Months(months)

	values, err := src(ctx, a.Start(months))
	if err != nil {
		a.logger.Error("ошибка получения месячного ряда, используем нули",
			zap.String("metric", metric),
			zap.Int("months", len(keys)),
			zap.Error(err))
		values = nil
	}

	return Fill(keys, values)
}

// Fill раскладывает значения по месяцам; пропущенные месяцы равны нулю
func Fill(months []string, values map[string]float64) []models.TrendPoint {
	points := make([]models.TrendPoint, len(months))
	for i, month := range months {
		points[i] = models.TrendPoint{Month: month, Value: values[month]}
	}
	return points
}

// GrowthRate рост между двумя последними точками в процентах
func GrowthRate(series []models.TrendPoint) float64 {
	if len(series) < 2 {
		return 0
	}
	current := series[len(series)-1].Value
	previous := series[len(series)-2].Value

	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}

	growth := (current - previous) / previous * 100
	return math.Round(growth*100) / 100
}

// MonthKey возвращает ключ месяца для времени
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}
