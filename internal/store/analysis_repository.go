package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surecrm-network/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AnalysisRepository определяет интерфейс для срезов анализа сети
type AnalysisRepository interface {
	SaveSnapshot(ctx context.Context, snapshot *models.NetworkAnalysisSnapshot) error
	GetLatestSnapshot(ctx context.Context, tenantID string, now time.Time) (*models.NetworkAnalysisSnapshot, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PostgresAnalysisRepository реализует AnalysisRepository для PostgreSQL
type PostgresAnalysisRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAnalysisRepository создает новый репозиторий срезов
func NewAnalysisRepository(db *pgxpool.Pool, logger *zap.Logger) AnalysisRepository {
	return &PostgresAnalysisRepository{
		db:     db,
		logger: logger,
	}
}

// SaveSnapshot сохраняет срез одной вставкой
func (r *PostgresAnalysisRepository) SaveSnapshot(ctx context.Context, s *models.NetworkAnalysisSnapshot) error {
	query := `
		INSERT INTO network_analysis (
			id, agent_id, analysis_date, total_influencers, active_influencers,
			total_referrals, successful_referrals, average_conversion_rate,
			total_network_value, average_network_depth, average_network_width,
			average_relationship_strength, total_gratitude_sent, gratitude_frequency,
			monthly_growth_rate, data_quality_score, confidence_level, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.AgentID,
		s.AnalysisDate,
		s.TotalInfluencers,
		s.ActiveInfluencers,
		s.TotalReferrals,
		s.SuccessfulReferrals,
		s.AverageConversionRate,
		s.TotalNetworkValue,
		s.AverageNetworkDepth,
		s.AverageNetworkWidth,
		s.AverageRelationshipStrength,
		s.TotalGratitudeSent,
		s.GratitudeFrequency,
		s.MonthlyGrowthRate,
		s.DataQualityScore,
		s.ConfidenceLevel,
		s.ExpiresAt,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения среза анализа: %w", err)
	}

	r.logger.Info("срез анализа сохранен",
		zap.String("tenant_id", s.AgentID),
		zap.String("snapshot_id", s.ID),
		zap.Time("expires_at", s.ExpiresAt))

	return nil
}

// GetLatestSnapshot получает последний неистекший срез агента
func (r *PostgresAnalysisRepository) GetLatestSnapshot(ctx context.Context, tenantID string, now time.Time) (*models.NetworkAnalysisSnapshot, error) {
	query := `
		SELECT id, agent_id, analysis_date, total_influencers, active_influencers,
		       total_referrals, successful_referrals, average_conversion_rate::float8,
		       total_network_value::float8, average_network_depth::float8, average_network_width::float8,
		       average_relationship_strength::float8, total_gratitude_sent, gratitude_frequency::float8,
		       monthly_growth_rate::float8, data_quality_score::float8, confidence_level::float8,
		       expires_at, created_at
		FROM network_analysis
		WHERE agent_id = $1 AND expires_at > $2
		ORDER BY analysis_date DESC
		LIMIT 1`

	s := &models.NetworkAnalysisSnapshot{}
	err := r.db.QueryRow(ctx, query, tenantID, now).Scan(
		&s.ID,
		&s.AgentID,
		&s.AnalysisDate,
		&s.TotalInfluencers,
		&s.ActiveInfluencers,
		&s.TotalReferrals,
		&s.SuccessfulReferrals,
		&s.AverageConversionRate,
		&s.TotalNetworkValue,
		&s.AverageNetworkDepth,
		&s.AverageNetworkWidth,
		&s.AverageRelationshipStrength,
		&s.TotalGratitudeSent,
		&s.GratitudeFrequency,
		&s.MonthlyGrowthRate,
		&s.DataQualityScore,
		&s.ConfidenceLevel,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения среза анализа: %w", err)
	}

	return s, nil
}

// DeleteExpired удаляет истекшие срезы
func (r *PostgresAnalysisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM network_analysis WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления истекших срезов: %w", err)
	}
	return tag.RowsAffected(), nil
}
