package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"surecrm-network/pkg/models"
)

// digestTopLimit количество клиентов в дайджесте
const digestTopLimit = 3

// NetworkService операции аналитики, нужные задаче пересчета
type NetworkService interface {
	ListTenants(ctx context.Context) ([]string, error)
	RefreshProfiles(ctx context.Context, tenantID string) (int, error)
	GetNetworkAnalysis(ctx context.Context, tenantID string) (*models.NetworkAnalysisDisplayData, error)
	GetTopInfluencers(ctx context.Context, tenantID string, limit int, period models.Period) ([]models.InfluencerDisplayData, error)
	PurgeExpiredSnapshots(ctx context.Context) (int64, error)
}

// DigestNotifier отправляет сводку по сети агента
type DigestNotifier interface {
	SendDigest(ctx context.Context, tenantID string, analysis *models.NetworkAnalysisDisplayData, top []models.InfluencerDisplayData) error
}

// SnapshotJob пересчитывает профили и срезы анализа по всем агентам
type SnapshotJob struct {
	service  NetworkService
	notifier DigestNotifier
	logger   *zap.Logger
}

// NewSnapshotJob создает задачу пересчета; notifier может быть nil
func NewSnapshotJob(service NetworkService, notifier DigestNotifier, logger *zap.Logger) *SnapshotJob {
	return &SnapshotJob{
		service:  service,
		notifier: notifier,
		logger:   logger,
	}
}

// Name возвращает имя задачи
func (j *SnapshotJob) Name() string {
	return "network_snapshot"
}

// Run обходит агентов по очереди. Ошибка одного агента не останавливает остальных.
func (j *SnapshotJob) Run(ctx context.Context) error {
	tenants, err := j.service.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения списка агентов: %w", err)
	}

	j.logger.Info("запуск пересчета реферальных сетей", zap.Int("tenants", len(tenants)))

	failed := 0
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := j.processTenant(ctx, tenantID); err != nil {
			failed++
			j.logger.Error("ошибка пересчета сети агента",
				zap.String("tenant_id", tenantID),
				zap.Error(err))
		}
	}

	purged, err := j.service.PurgeExpiredSnapshots(ctx)
	if err != nil {
		j.logger.Warn("ошибка удаления истекших срезов", zap.Error(err))
	} else if purged > 0 {
		j.logger.Info("удалены истекшие срезы анализа", zap.Int64("count", purged))
	}

	j.logger.Info("пересчет реферальных сетей завершен",
		zap.Int("tenants", len(tenants)),
		zap.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("пересчет не выполнен для %d из %d агентов", failed, len(tenants))
	}
	return nil
}

func (j *SnapshotJob) processTenant(ctx context.Context, tenantID string) error {
	if _, err := j.service.RefreshProfiles(ctx, tenantID); err != nil {
		return err
	}

	analysis, err := j.service.GetNetworkAnalysis(ctx, tenantID)
	if err != nil {
		return err
	}

	if j.notifier == nil {
		return nil
	}

	top, err := j.service.GetTopInfluencers(ctx, tenantID, digestTopLimit, models.PeriodMonth)
	if err != nil {
		return err
	}

	// Сбой уведомления не считается ошибкой пересчета
	if err := j.notifier.SendDigest(ctx, tenantID, analysis, top); err != nil {
		j.logger.Warn("ошибка отправки дайджеста",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
	return nil
}
