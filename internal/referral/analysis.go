package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surecrm-network/internal/cache"
	"surecrm-network/internal/metrics"
	"surecrm-network/internal/scoring"
	"surecrm-network/internal/store"
	"surecrm-network/internal/trend"
	"surecrm-network/pkg/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAnalysisUnavailable анализ сети не удалось выполнить
var ErrAnalysisUnavailable = errors.New("анализ реферальной сети недоступен")

// Названия месячных рядов
const (
	metricReferrals     = "referrals"
	metricConversion    = "conversion_rate"
	metricContractValue = "contract_value"
	metricGratitudeSent = "gratitude_sent"
)

// GetNetworkAnalysis считает сводную статистику сети агента и сохраняет срез.
// Срез сначала сохраняется в базе и только потом попадает в кэш.
func (s *Service) GetNetworkAnalysis(ctx context.Context, tenantID string) (result *models.NetworkAnalysisDisplayData, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(metrics.OpNetworkAnalysis, started, err) }()

	key := cache.NetworkAnalysisKey(tenantID)
	var cached models.NetworkAnalysisDisplayData
	if s.cached(ctx, metrics.OpNetworkAnalysis, key, &cached) {
		return &cached, nil
	}

	data, err := s.analyze(ctx, tenantID)
	if err != nil {
		s.logger.Error("ошибка анализа реферальной сети",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return nil, ErrAnalysisUnavailable
	}

	snapshot := data.Snapshot(s.newID(), data.AnalysisDate.Add(s.opts.SnapshotTTL))
	if err := s.analysis.SaveSnapshot(ctx, snapshot); err != nil {
		s.logger.Error("ошибка сохранения среза анализа",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return nil, ErrAnalysisUnavailable
	}
	s.metrics.RecordSnapshot()

	s.remember(ctx, key, data)

	return data, nil
}

func (s *Service) analyze(ctx context.Context, tenantID string) (*models.NetworkAnalysisDisplayData, error) {
	now := s.now()
	months := s.opts.TrendMonths
	activeSince := now.AddDate(0, -s.opts.ActiveMonths, 0)

	var (
		totals       *models.ReferralTotals
		profiles     *models.ProfileStats
		gratitude    *models.GratitudeStats
		networkValue float64
		trends       models.NetworkTrends
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		totals, err = s.referrals.GetReferralTotals(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = s.influencers.GetProfileStats(gctx, tenantID, activeSince)
		return err
	})
	g.Go(func() error {
		var err error
		gratitude, err = s.gratitude.GetStats(gctx, tenantID, s.trends.Start(months), months)
		return err
	})
	g.Go(func() error {
		var err error
		networkValue, err = s.referrals.GetNetworkValue(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		trends = s.networkTrends(gctx, tenantID, months)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.NetworkAnalysisDisplayData{
		AgentID:                     tenantID,
		AnalysisDate:                now,
		TotalInfluencers:            totals.TotalInfluencers,
		ActiveInfluencers:           profiles.ActiveInfluencers,
		TotalReferrals:              totals.TotalReferrals,
		SuccessfulReferrals:         totals.SuccessfulReferrals,
		AverageConversionRate:       scoring.Round(totals.AverageConversionRate, 2),
		TotalNetworkValue:           networkValue,
		AverageNetworkDepth:         scoring.Round(profiles.AverageNetworkDepth, 2),
		AverageNetworkWidth:         scoring.Round(profiles.AverageNetworkWidth, 2),
		AverageRelationshipStrength: scoring.Round(profiles.AverageRelationshipStrength, 1),
		TotalGratitudeSent:          gratitude.TotalSent,
		TotalGratitudeCost:          gratitude.TotalCost,
		GratitudeFrequency:          scoring.Round(gratitude.MonthlyFrequency, 2),
		MonthlyGrowthRate:           trend.GrowthRate(trends.Referrals),
		DataQualityScore:            s.opts.DataQuality,
		ConfidenceLevel:             scoring.ConfidenceLevel(profiles.ActiveInfluencers, totals.TotalInfluencers),
		Trends:                      trends,
	}, nil
}

// networkTrends строит четыре месячных ряда параллельно; ошибки дают нулевые ряды
func (s *Service) networkTrends(ctx context.Context, tenantID string, months int) models.NetworkTrends {
	var trends models.NetworkTrends

	series := []struct {
		metric string
		dst    *[]models.TrendPoint
		src    trend.MonthlySource
	}{
		{metricReferrals, &trends.Referrals, func(ctx context.Context, from time.Time) (map[string]float64, error) {
			return s.referrals.GetReferralTrend(ctx, tenantID, from)
		}},
		{metricConversion, &trends.ConversionRate, func(ctx context.Context, from time.Time) (map[string]float64, error) {
			return s.referrals.GetConversionTrend(ctx, tenantID, from)
		}},
		{metricContractValue, &trends.ContractValue, func(ctx context.Context, from time.Time) (map[string]float64, error) {
			return s.referrals.GetContractValueTrend(ctx, tenantID, from)
		}},
		{metricGratitudeSent, &trends.GratitudeSent, func(ctx context.Context, from time.Time) (map[string]float64, error) {
			return s.gratitude.GetSendTrend(ctx, tenantID, from)
		}},
	}

	var g errgroup.Group
	for _, sr := range series {
		sr := sr
		g.Go(func() error {
			*sr.dst = s.trends.Series(ctx, sr.metric, months, sr.src)
			return nil
		})
	}
	_ = g.Wait()

	return trends
}

// GetLatestSnapshot возвращает последний неистекший сохраненный срез агента
func (s *Service) GetLatestSnapshot(ctx context.Context, tenantID string) (*models.NetworkAnalysisSnapshot, error) {
	snapshot, err := s.analysis.GetLatestSnapshot(ctx, tenantID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("срез анализа агента %s: %w", tenantID, store.ErrNotFound)
		}
		s.logger.Error("ошибка получения среза анализа",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return nil, ErrAnalysisUnavailable
	}
	return snapshot, nil
}
