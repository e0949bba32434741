package referral

import (
	"context"
	"errors"
	"time"

	"surecrm-network/internal/cache"
	"surecrm-network/internal/config"
	"surecrm-network/internal/metrics"
	"surecrm-network/internal/network"
	"surecrm-network/internal/store"
	"surecrm-network/internal/trend"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options параметры аналитики реферальной сети
type Options struct {
	CacheTTL     time.Duration
	ActiveMonths int
	DataQuality  float64
	TrendMonths  int
	SnapshotTTL  time.Duration
	RefreshLimit int
	// Clock источник времени; nil означает time.Now
	Clock func() time.Time
}

// OptionsFromConfig собирает параметры из конфигурации
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CacheTTL:     cfg.Cache.TTL,
		ActiveMonths: cfg.Analysis.ActiveMonths,
		DataQuality:  cfg.Analysis.DataQuality,
		TrendMonths:  cfg.Analysis.TrendMonths,
		SnapshotTTL:  cfg.Analysis.SnapshotTTL,
		RefreshLimit: cfg.Analysis.RefreshLimit,
	}
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = cache.DefaultTTL
	}
	if o.ActiveMonths <= 0 {
		o.ActiveMonths = 6
	}
	if o.TrendMonths <= 0 {
		o.TrendMonths = trend.DefaultMonths
	}
	if o.SnapshotTTL <= 0 {
		o.SnapshotTTL = 24 * time.Hour
	}
	if o.RefreshLimit <= 0 {
		o.RefreshLimit = 500
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Service аналитика реферальной сети агента: рейтинг, анализ, благодарности
type Service struct {
	referrals   store.ReferralRepository
	influencers store.InfluencerRepository
	gratitude   store.GratitudeRepository
	analysis    store.AnalysisRepository

	cache    cache.Cache
	topology *network.Analyzer
	trends   *trend.Aggregator
	metrics  *metrics.Metrics
	validate *validator.Validate

	opts   Options
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// NewService создает сервис аналитики; nil cache отключает кэширование
func NewService(
	referrals store.ReferralRepository,
	influencers store.InfluencerRepository,
	gratitude store.GratitudeRepository,
	analysis store.AnalysisRepository,
	c cache.Cache,
	m *metrics.Metrics,
	opts Options,
	logger *zap.Logger,
) *Service {
	opts = opts.withDefaults()
	if c == nil {
		c = cache.Noop{}
	}

	return &Service{
		referrals:   referrals,
		influencers: influencers,
		gratitude:   gratitude,
		analysis:    analysis,
		cache:       c,
		topology:    network.NewAnalyzer(referrals, logger),
		trends:      trend.NewAggregator(logger, opts.Clock),
		metrics:     m,
		validate:    newValidator(),
		opts:        opts,
		now:         opts.Clock,
		newID:       func() string { return uuid.New().String() },
		logger:      logger,
	}
}

// NewServiceFromStore создает сервис поверх репозиториев хранилища
func NewServiceFromStore(st store.Store, c cache.Cache, m *metrics.Metrics, opts Options, logger *zap.Logger) *Service {
	return NewService(st.Referral(), st.Influencer(), st.Gratitude(), st.Analysis(), c, m, opts, logger)
}

// ListTenants возвращает агентов с реферальной активностью
func (s *Service) ListTenants(ctx context.Context) ([]string, error) {
	return s.influencers.ListTenantIDs(ctx)
}

// PurgeExpiredSnapshots удаляет истекшие срезы анализа
func (s *Service) PurgeExpiredSnapshots(ctx context.Context) (int64, error) {
	return s.analysis.DeleteExpired(ctx, s.now())
}

// invalidate сбрасывает все записи кэша агента
func (s *Service) invalidate(ctx context.Context, tenantID string) {
	removed, err := s.cache.DeleteContaining(ctx, tenantID)
	if err != nil {
		s.logger.Warn("ошибка сброса кэша агента",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return
	}
	s.logger.Debug("кэш агента сброшен",
		zap.String("tenant_id", tenantID),
		zap.Int("removed", removed))
}

// cached читает значение из кэша и учитывает попадание в метриках
func (s *Service) cached(ctx context.Context, operation, key string, dst interface{}) bool {
	err := cache.GetJSON(ctx, s.cache, key, dst)
	if err == nil {
		s.metrics.RecordCache(operation, true)
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("ошибка чтения кэша", zap.String("key", key), zap.Error(err))
	}
	s.metrics.RecordCache(operation, false)
	return false
}

func (s *Service) remember(ctx context.Context, key string, value interface{}) {
	if err := cache.SetJSON(ctx, s.cache, key, value, s.opts.CacheTTL); err != nil {
		s.logger.Warn("ошибка записи в кэш", zap.String("key", key), zap.Error(err))
	}
}
