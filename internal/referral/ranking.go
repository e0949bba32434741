package referral

import (
	"context"
	"errors"
	"time"

	"surecrm-network/internal/cache"
	"surecrm-network/internal/metrics"
	"surecrm-network/internal/network"
	"surecrm-network/internal/scoring"
	"surecrm-network/internal/trend"
	"surecrm-network/pkg/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrRankingUnavailable рейтинг не удалось построить
var ErrRankingUnavailable = errors.New("рейтинг влиятельных клиентов недоступен")

const (
	// DefaultLimit размер рейтинга по умолчанию
	DefaultLimit = 10

	patternMonths   = 12
	activitiesLimit = 5
)

// GetTopInfluencers возвращает рейтинг клиентов по количеству рекомендаций за период.
// Клиенты без рекомендаций в периоде в рейтинг не попадают.
func (s *Service) GetTopInfluencers(ctx context.Context, tenantID string, limit int, period models.Period) (result []models.InfluencerDisplayData, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(metrics.OpTopInfluencers, started, err) }()

	if limit <= 0 {
		limit = DefaultLimit
	}
	if !period.IsValid() {
		period = models.PeriodAll
	}

	key := cache.TopInfluencersKey(tenantID, limit, string(period))
	var cached []models.InfluencerDisplayData
	if s.cached(ctx, metrics.OpTopInfluencers, key, &cached) {
		return cached, nil
	}

	ranked, err := s.rank(ctx, tenantID, limit, period.Since(s.now()))
	if err != nil {
		s.logger.Error("ошибка построения рейтинга",
			zap.String("tenant_id", tenantID),
			zap.Int("limit", limit),
			zap.String("period", string(period)),
			zap.Error(err))
		return nil, ErrRankingUnavailable
	}

	result = make([]models.InfluencerDisplayData, len(ranked))
	for i, r := range ranked {
		result[i] = r.display
	}

	s.remember(ctx, key, result)
	s.metrics.SetRankedInfluencers(len(result))

	return result, nil
}

// rankedInfluencer запись рейтинга вместе с профилем, если он есть
type rankedInfluencer struct {
	display models.InfluencerDisplayData
	profile *models.InfluencerProfile
}

// enrichment данные, собранные параллельно для набора клиентов
type enrichment struct {
	profiles   map[string]*models.InfluencerProfile
	gratitude  map[string]time.Time
	monthly    map[string]map[string]int
	activities map[string][]models.ActivityLog
	network    map[string]models.NetworkData
}

func (s *Service) rank(ctx context.Context, tenantID string, limit int, since *time.Time) ([]rankedInfluencer, error) {
	referrers, err := s.referrals.GetTopReferrers(ctx, tenantID, since, limit)
	if err != nil {
		return nil, err
	}

	// Клиенты без рекомендаций в периоде не ранжируются
	active := make([]*models.ReferrerAggregate, 0, len(referrers))
	for _, r := range referrers {
		if r.TotalReferrals >= 1 {
			active = append(active, r)
		}
	}
	referrers = active
	if len(referrers) == 0 {
		return []rankedInfluencer{}, nil
	}

	ids := make([]string, len(referrers))
	for i, r := range referrers {
		ids[i] = r.ClientID
	}

	e, err := s.enrich(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	months := s.trends.Months(patternMonths)

	ranked := make([]rankedInfluencer, len(referrers))
	for i, agg := range referrers {
		ranked[i] = rankedInfluencer{
			display: buildDisplay(i+1, agg, e, months, now),
			profile: e.profiles[agg.ClientID],
		}
	}

	return ranked, nil
}

func (s *Service) enrich(ctx context.Context, tenantID string, ids []string) (*enrichment, error) {
	e := &enrichment{}
	from := s.trends.Start(patternMonths)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		e.profiles, err = s.influencers.GetProfilesByClientIDs(gctx, tenantID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		e.gratitude, err = s.gratitude.GetLastGratitudeDates(gctx, tenantID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		e.monthly, err = s.referrals.GetMonthlyReferralCounts(gctx, tenantID, ids, from)
		return err
	})
	g.Go(func() error {
		var err error
		e.activities, err = s.influencers.GetRecentActivities(gctx, tenantID, ids, activitiesLimit)
		return err
	})
	g.Go(func() error {
		e.network = network.ByClient(s.topology.Analyze(gctx, tenantID, ids))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e, nil
}

func buildDisplay(rank int, agg *models.ReferrerAggregate, e *enrichment, months []string, now time.Time) models.InfluencerDisplayData {
	profile := e.profiles[agg.ClientID]

	var lastGratitude *time.Time
	if t, ok := e.gratitude[agg.ClientID]; ok {
		lastGratitude = &t
	} else if profile != nil && profile.LastGratitudeDate != nil {
		lastGratitude = profile.LastGratitudeDate
	}

	nd, ok := e.network[agg.ClientID]
	if !ok {
		nd = models.NetworkData{ClientID: agg.ClientID, Width: 0, Depth: 1}
	}

	conversion := scoring.ConversionRate(agg.SuccessfulReferrals, agg.TotalReferrals)
	lastReferral := agg.LastReferralDate
	strength := scoring.RelationshipStrength(scoring.RelationshipInput{
		TotalReferrals:     agg.TotalReferrals,
		ConversionRate:     conversion,
		TotalContractValue: agg.TotalContractValue,
		LastReferralDate:   &lastReferral,
		LastGratitudeDate:  lastGratitude,
		Now:                now,
	})

	var average float64
	if agg.SuccessfulReferrals > 0 {
		average = scoring.Round(agg.TotalContractValue/float64(agg.SuccessfulReferrals), 2)
	}

	pattern := make(map[string]int)
	values := make(map[string]float64)
	for month, count := range e.monthly[agg.ClientID] {
		pattern[month] = count
		values[month] = float64(count)
	}

	activities := e.activities[agg.ClientID]
	if activities == nil {
		activities = []models.ActivityLog{}
	}

	display := models.InfluencerDisplayData{
		ID:                     agg.ClientID,
		Rank:                   rank,
		Name:                   agg.FullName,
		TotalReferrals:         agg.TotalReferrals,
		SuccessfulContracts:    agg.SuccessfulReferrals,
		ConversionRate:         scoring.Round(conversion, 1),
		TotalContractValue:     agg.TotalContractValue,
		AverageContractValue:   average,
		FirstReferralDate:      agg.FirstReferralDate,
		LastReferralDate:       agg.LastReferralDate,
		LastGratitudeDate:      lastGratitude,
		RelationshipStrength:   strength,
		Tier:                   scoring.Tier(conversion, agg.TotalReferrals, strength),
		NetworkDepth:           nd.Depth,
		NetworkWidth:           nd.Width,
		MonthlyReferrals:       trend.Fill(months, values),
		ReferralPattern:        pattern,
		PreferredContactMethod: models.ContactMethodPhone,
		RecentActivities:       activities,
		IsActive:               true,
		HasProfile:             profile != nil,
		DataQuality: scoring.DataQuality(scoring.DataQualityInput{
			HasProfile:   profile != nil,
			IsVerified:   profile != nil && profile.IsDataVerified,
			HasGratitude: lastGratitude != nil,
			NetworkWidth: nd.Width,
			Name:         agg.FullName,
		}),
	}

	if profile != nil {
		if profile.PreferredContactMethod != nil && *profile.PreferredContactMethod != "" {
			display.PreferredContactMethod = *profile.PreferredContactMethod
		}
		if profile.Notes != nil {
			display.Notes = *profile.Notes
		}
		display.IsActive = profile.IsActive
	}

	return display
}
