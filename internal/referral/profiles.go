package referral

import (
	"context"
	"fmt"
	"time"

	"surecrm-network/internal/metrics"
	"surecrm-network/pkg/models"

	"go.uber.org/zap"
)

// RefreshProfiles пересчитывает профили всех рекомендателей агента за все время.
// Возвращает количество обновленных профилей.
func (s *Service) RefreshProfiles(ctx context.Context, tenantID string) (updated int, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveOperation(metrics.OpRefreshProfiles, started, err) }()

	ranked, err := s.rank(ctx, tenantID, s.opts.RefreshLimit, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка расчета профилей агента %s: %w", tenantID, err)
	}

	now := s.now()
	for _, r := range ranked {
		profile := profileFromDisplay(tenantID, &r.display, now)
		if r.profile != nil {
			profile.ID = r.profile.ID
		} else {
			profile.ID = s.newID()
		}

		if err := s.influencers.UpsertProfileMetrics(ctx, profile); err != nil {
			return updated, fmt.Errorf("ошибка сохранения профиля клиента %s: %w", profile.ClientID, err)
		}
		updated++
	}

	if updated > 0 {
		s.invalidate(ctx, tenantID)
	}

	s.logger.Info("профили влиятельных клиентов пересчитаны",
		zap.String("tenant_id", tenantID),
		zap.Int("updated", updated))

	return updated, nil
}

func profileFromDisplay(tenantID string, d *models.InfluencerDisplayData, now time.Time) *models.InfluencerProfile {
	lastReferral := d.LastReferralDate
	return &models.InfluencerProfile{
		AgentID:               tenantID,
		ClientID:              d.ID,
		Tier:                  d.Tier,
		TotalReferrals:        d.TotalReferrals,
		SuccessfulConversions: d.SuccessfulContracts,
		ConversionRate:        d.ConversionRate,
		TotalContractValue:    d.TotalContractValue,
		AverageContractValue:  d.AverageContractValue,
		NetworkDepth:          d.NetworkDepth,
		NetworkWidth:          d.NetworkWidth,
		RelationshipStrength:  d.RelationshipStrength,
		LastReferralDate:      &lastReferral,
		DataQualityScore:      d.DataQuality.Score,
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}
