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

// InfluencerRepository определяет интерфейс для профилей влиятельных клиентов
type InfluencerRepository interface {
	GetProfilesByClientIDs(ctx context.Context, tenantID string, clientIDs []string) (map[string]*models.InfluencerProfile, error)
	GetProfileByClientID(ctx context.Context, tenantID, clientID string) (*models.InfluencerProfile, error)
	GetRecentActivities(ctx context.Context, tenantID string, clientIDs []string, perClient int) (map[string][]models.ActivityLog, error)
	GetProfileStats(ctx context.Context, tenantID string, activeSince time.Time) (*models.ProfileStats, error)
	UpsertProfileMetrics(ctx context.Context, profile *models.InfluencerProfile) error
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// PostgresInfluencerRepository реализует InfluencerRepository для PostgreSQL
type PostgresInfluencerRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewInfluencerRepository создает новый репозиторий профилей
func NewInfluencerRepository(db *pgxpool.Pool, logger *zap.Logger) InfluencerRepository {
	return &PostgresInfluencerRepository{
		db:     db,
		logger: logger,
	}
}

const profileColumns = `
	id, agent_id, client_id, tier, total_referrals, successful_conversions,
	conversion_rate::float8, total_contract_value::float8, average_contract_value::float8,
	network_depth, network_width, relationship_strength::float8,
	last_referral_date, last_gratitude_date, last_contact_date,
	preferred_contact_method, notes, is_active, is_data_verified,
	data_quality_score::float8, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.InfluencerProfile, error) {
	p := &models.InfluencerProfile{}
	err := row.Scan(
		&p.ID,
		&p.AgentID,
		&p.ClientID,
		&p.Tier,
		&p.TotalReferrals,
		&p.SuccessfulConversions,
		&p.ConversionRate,
		&p.TotalContractValue,
		&p.AverageContractValue,
		&p.NetworkDepth,
		&p.NetworkWidth,
		&p.RelationshipStrength,
		&p.LastReferralDate,
		&p.LastGratitudeDate,
		&p.LastContactDate,
		&p.PreferredContactMethod,
		&p.Notes,
		&p.IsActive,
		&p.IsDataVerified,
		&p.DataQualityScore,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfilesByClientIDs получает профили набора клиентов, ключ — id клиента
func (r *PostgresInfluencerRepository) GetProfilesByClientIDs(ctx context.Context, tenantID string, clientIDs []string) (map[string]*models.InfluencerProfile, error) {
	profiles := make(map[string]*models.InfluencerProfile)
	if len(clientIDs) == 0 {
		return profiles, nil
	}

	query := `SELECT ` + profileColumns + `
		FROM influencer_profiles
		WHERE agent_id = $1 AND client_id = ANY($2::uuid[])`

	rows, err := r.db.Query(ctx, query, tenantID, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения профилей: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования профиля: %w", err)
		}
		profiles[p.ClientID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения профилей: %w", err)
	}

	return profiles, nil
}

// GetProfileByClientID получает профиль клиента
func (r *PostgresInfluencerRepository) GetProfileByClientID(ctx context.Context, tenantID, clientID string) (*models.InfluencerProfile, error) {
	query := `SELECT ` + profileColumns + `
		FROM influencer_profiles
		WHERE agent_id = $1 AND client_id = $2`

	p, err := scanProfile(r.db.QueryRow(ctx, query, tenantID, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}

	return p, nil
}

// GetRecentActivities получает последние записи журнала по каждому клиенту
func (r *PostgresInfluencerRepository) GetRecentActivities(ctx context.Context, tenantID string, clientIDs []string, perClient int) (map[string][]models.ActivityLog, error) {
	activities := make(map[string][]models.ActivityLog)
	if len(clientIDs) == 0 {
		return activities, nil
	}

	query := `
		SELECT id, agent_id, influencer_id, client_id, action,
		       COALESCE(description, ''), metadata, created_at
		FROM (
			SELECT a.*,
			       ROW_NUMBER() OVER (PARTITION BY client_id ORDER BY created_at DESC) AS rn
			FROM activity_logs a
			WHERE agent_id = $1 AND client_id = ANY($2::uuid[])
		) ranked
		WHERE rn <= $3
		ORDER BY client_id, created_at DESC`

	rows, err := r.db.Query(ctx, query, tenantID, clientIDs, perClient)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала действий: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.ActivityLog
		err := rows.Scan(
			&a.ID,
			&a.AgentID,
			&a.InfluencerID,
			&a.ClientID,
			&a.Action,
			&a.Description,
			&a.Metadata,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		activities[a.ClientID] = append(activities[a.ClientID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала действий: %w", err)
	}

	return activities, nil
}

// GetProfileStats получает количество и средние показатели профилей агента.
// Активным считается профиль с контактом не раньше activeSince.
func (r *PostgresInfluencerRepository) GetProfileStats(ctx context.Context, tenantID string, activeSince time.Time) (*models.ProfileStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE last_contact_date >= $2),
		       COALESCE(AVG(network_depth), 0)::float8,
		       COALESCE(AVG(network_width), 0)::float8,
		       COALESCE(AVG(relationship_strength), 0)::float8
		FROM influencer_profiles
		WHERE agent_id = $1 AND is_active`

	stats := &models.ProfileStats{}
	err := r.db.QueryRow(ctx, query, tenantID, activeSince).Scan(
		&stats.TotalProfiles,
		&stats.ActiveInfluencers,
		&stats.AverageNetworkDepth,
		&stats.AverageNetworkWidth,
		&stats.AverageRelationshipStrength,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики профилей: %w", err)
	}

	return stats, nil
}

// UpsertProfileMetrics создает профиль или обновляет его расчетные поля.
// Заметки, способ связи и даты контакта не перезаписываются.
func (r *PostgresInfluencerRepository) UpsertProfileMetrics(ctx context.Context, p *models.InfluencerProfile) error {
	query := `
		INSERT INTO influencer_profiles (
			id, agent_id, client_id, tier, total_referrals, successful_conversions,
			conversion_rate, total_contract_value, average_contract_value,
			network_depth, network_width, relationship_strength,
			last_referral_date, data_quality_score, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, TRUE, $15, $15)
		ON CONFLICT (agent_id, client_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			total_referrals = EXCLUDED.total_referrals,
			successful_conversions = EXCLUDED.successful_conversions,
			conversion_rate = EXCLUDED.conversion_rate,
			total_contract_value = EXCLUDED.total_contract_value,
			average_contract_value = EXCLUDED.average_contract_value,
			network_depth = EXCLUDED.network_depth,
			network_width = EXCLUDED.network_width,
			relationship_strength = EXCLUDED.relationship_strength,
			last_referral_date = EXCLUDED.last_referral_date,
			data_quality_score = EXCLUDED.data_quality_score,
			updated_at = EXCLUDED.updated_at
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.AgentID,
		p.ClientID,
		p.Tier,
		p.TotalReferrals,
		p.SuccessfulConversions,
		p.ConversionRate,
		p.TotalContractValue,
		p.AverageContractValue,
		p.NetworkDepth,
		p.NetworkWidth,
		p.RelationshipStrength,
		p.LastReferralDate,
		p.DataQualityScore,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения профиля: %w", err)
	}

	r.logger.Debug("профиль обновлен",
		zap.String("tenant_id", p.AgentID),
		zap.String("client_id", p.ClientID),
		zap.String("tier", string(p.Tier)))

	return nil
}

// ListTenantIDs возвращает агентов, у которых есть хотя бы одна рекомендация
func (r *PostgresInfluencerRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT agent_id::text
		FROM clients
		WHERE referred_by_id IS NOT NULL AND is_active
		ORDER BY 1`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка агентов: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агента: %w", err)
		}
		tenants = append(tenants, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения списка агентов: %w", err)
	}

	return tenants, nil
}
