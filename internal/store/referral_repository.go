package store

import (
	"context"
	"fmt"
	"time"

	"surecrm-network/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ReferralRepository определяет интерфейс агрегатов реферальной сети
type ReferralRepository interface {
	GetTopReferrers(ctx context.Context, tenantID string, since *time.Time, limit int) ([]*models.ReferrerAggregate, error)
	GetOutgoingReferrals(ctx context.Context, tenantID string, clientIDs []string) (map[string][]string, error)
	GetMonthlyReferralCounts(ctx context.Context, tenantID string, clientIDs []string, from time.Time) (map[string]map[string]int, error)
	GetReferralTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error)
	GetConversionTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error)
	GetContractValueTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error)
	GetReferralTotals(ctx context.Context, tenantID string) (*models.ReferralTotals, error)
	GetNetworkValue(ctx context.Context, tenantID string) (float64, error)
}

// PostgresReferralRepository реализует ReferralRepository для PostgreSQL.
// Реферальная связь — это clients.referred_by_id → clients.id.
type PostgresReferralRepository struct {
	db           *pgxpool.Pool
	successStage string
	logger       *zap.Logger
}

// NewReferralRepository создает новый репозиторий рефералов
func NewReferralRepository(db *pgxpool.Pool, successStage string, logger *zap.Logger) ReferralRepository {
	return &PostgresReferralRepository{
		db:           db,
		successStage: successStage,
		logger:       logger,
	}
}

// GetTopReferrers возвращает клиентов с наибольшим числом рефералов за период
func (r *PostgresReferralRepository) GetTopReferrers(ctx context.Context, tenantID string, since *time.Time, limit int) ([]*models.ReferrerAggregate, error) {
	query := `
		SELECT r.id, COALESCE(r.full_name, ''),
		       COUNT(c.id) AS total_referrals,
		       COUNT(c.id) FILTER (WHERE ps.name = $2) AS successful_referrals,
		       COALESCE(SUM(cv.contract_value), 0)::float8 AS total_contract_value,
		       MIN(c.created_at), MAX(c.created_at)
		FROM clients c
		JOIN clients r ON r.id = c.referred_by_id AND r.agent_id = c.agent_id
		LEFT JOIN pipeline_stages ps ON ps.id = c.current_stage_id
		LEFT JOIN (
			SELECT client_id, SUM(contract_value) AS contract_value
			FROM contracts
			WHERE agent_id = $1 AND status <> 'cancelled'
			GROUP BY client_id
		) cv ON cv.client_id = c.id
		WHERE c.agent_id = $1
		  AND c.referred_by_id IS NOT NULL
		  AND c.is_active
		  AND ($3::timestamptz IS NULL OR c.created_at >= $3)
		GROUP BY r.id, r.full_name
		HAVING COUNT(c.id) >= 1
		ORDER BY total_referrals DESC, successful_referrals DESC, r.id ASC
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, tenantID, r.successStage, since, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топ рекомендателей: %w", err)
	}
	defer rows.Close()

	referrers := make([]*models.ReferrerAggregate, 0, limit)
	for rows.Next() {
		agg := &models.ReferrerAggregate{}
		err := rows.Scan(
			&agg.ClientID,
			&agg.FullName,
			&agg.TotalReferrals,
			&agg.SuccessfulReferrals,
			&agg.TotalContractValue,
			&agg.FirstReferralDate,
			&agg.LastReferralDate,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования рекомендателя: %w", err)
		}
		referrers = append(referrers, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения рекомендателей: %w", err)
	}

	return referrers, nil
}

// GetOutgoingReferrals возвращает прямых рефералов для набора клиентов одним запросом
func (r *PostgresReferralRepository) GetOutgoingReferrals(ctx context.Context, tenantID string, clientIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(clientIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT referred_by_id, id
		FROM clients
		WHERE agent_id = $1
		  AND referred_by_id = ANY($2::uuid[])
		  AND is_active`

	rows, err := r.db.Query(ctx, query, tenantID, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения исходящих рефералов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var referrerID, referredID string
		if err := rows.Scan(&referrerID, &referredID); err != nil {
			return nil, fmt.Errorf("ошибка сканирования реферальной связи: %w", err)
		}
		result[referrerID] = append(result[referrerID], referredID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения реферальных связей: %w", err)
	}

	return result, nil
}

// GetMonthlyReferralCounts возвращает число рефералов по месяцам для каждого клиента
func (r *PostgresReferralRepository) GetMonthlyReferralCounts(ctx context.Context, tenantID string, clientIDs []string, from time.Time) (map[string]map[string]int, error) {
	result := make(map[string]map[string]int)
	if len(clientIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT referred_by_id,
		       to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
		       COUNT(*)
		FROM clients
		WHERE agent_id = $1
		  AND referred_by_id = ANY($2::uuid[])
		  AND is_active
		  AND created_at >= $3
		GROUP BY referred_by_id, month`

	rows, err := r.db.Query(ctx, query, tenantID, clientIDs, from)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения месячных рефералов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clientID, month string
		var count int
		if err := rows.Scan(&clientID, &month, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования месячных рефералов: %w", err)
		}
		if result[clientID] == nil {
			result[clientID] = make(map[string]int)
		}
		result[clientID][month] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения месячных рефералов: %w", err)
	}

	return result, nil
}

// GetReferralTrend возвращает количество новых рефералов агента по месяцам
func (r *PostgresReferralRepository) GetReferralTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error) {
	query := `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
		       COUNT(*)::float8
		FROM clients
		WHERE agent_id = $1
		  AND referred_by_id IS NOT NULL
		  AND is_active
		  AND created_at >= $2
		GROUP BY month`

	return r.monthlyValues(ctx, "рефералов", query, tenantID, from)
}

// GetConversionTrend возвращает конверсию рефералов по месяцам их появления
func (r *PostgresReferralRepository) GetConversionTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error) {
	query := `
		SELECT to_char(date_trunc('month', c.created_at), 'YYYY-MM') AS month,
		       ROUND((COUNT(*) FILTER (WHERE ps.name = $3))::numeric * 100 / COUNT(*), 2)::float8
		FROM clients c
		LEFT JOIN pipeline_stages ps ON ps.id = c.current_stage_id
		WHERE c.agent_id = $1
		  AND c.referred_by_id IS NOT NULL
		  AND c.is_active
		  AND c.created_at >= $2
		GROUP BY month`

	return r.monthlyValues(ctx, "конверсии", query, tenantID, from, r.successStage)
}

// GetContractValueTrend возвращает сумму контрактов рефералов по месяцам заключения
func (r *PostgresReferralRepository) GetContractValueTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error) {
	query := `
		SELECT to_char(date_trunc('month', ct.created_at), 'YYYY-MM') AS month,
		       COALESCE(SUM(ct.contract_value), 0)::float8
		FROM contracts ct
		JOIN clients c ON c.id = ct.client_id AND c.agent_id = ct.agent_id
		WHERE ct.agent_id = $1
		  AND c.referred_by_id IS NOT NULL
		  AND ct.status <> 'cancelled'
		  AND ct.created_at >= $2
		GROUP BY month`

	return r.monthlyValues(ctx, "стоимости контрактов", query, tenantID, from)
}

func (r *PostgresReferralRepository) monthlyValues(ctx context.Context, metric, query string, args ...interface{}) (map[string]float64, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ряда %s: %w", metric, err)
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var month string
		var value float64
		if err := rows.Scan(&month, &value); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ряда %s: %w", metric, err)
		}
		values[month] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения ряда %s: %w", metric, err)
	}

	return values, nil
}

// GetReferralTotals получает итоговую статистику рефералов агента
func (r *PostgresReferralRepository) GetReferralTotals(ctx context.Context, tenantID string) (*models.ReferralTotals, error) {
	query := `
		WITH per_referrer AS (
			SELECT c.referred_by_id AS referrer_id,
			       COUNT(*) AS total,
			       COUNT(*) FILTER (WHERE ps.name = $2) AS successful
			FROM clients c
			LEFT JOIN pipeline_stages ps ON ps.id = c.current_stage_id
			WHERE c.agent_id = $1
			  AND c.referred_by_id IS NOT NULL
			  AND c.is_active
			GROUP BY c.referred_by_id
		)
		SELECT COUNT(*),
		       COALESCE(SUM(total), 0)::bigint,
		       COALESCE(SUM(successful), 0)::bigint,
		       COALESCE(AVG(successful::float8 * 100 / total), 0)::float8
		FROM per_referrer`

	totals := &models.ReferralTotals{}
	err := r.db.QueryRow(ctx, query, tenantID, r.successStage).Scan(
		&totals.TotalInfluencers,
		&totals.TotalReferrals,
		&totals.SuccessfulReferrals,
		&totals.AverageConversionRate,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики рефералов: %w", err)
	}

	return totals, nil
}

// GetNetworkValue получает общую стоимость контрактов, пришедших через рекомендации
func (r *PostgresReferralRepository) GetNetworkValue(ctx context.Context, tenantID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(ct.contract_value), 0)::float8
		FROM contracts ct
		JOIN clients c ON c.id = ct.client_id AND c.agent_id = ct.agent_id
		WHERE ct.agent_id = $1
		  AND c.referred_by_id IS NOT NULL
		  AND ct.status <> 'cancelled'`

	var value float64
	if err := r.db.QueryRow(ctx, query, tenantID).Scan(&value); err != nil {
		return 0, fmt.Errorf("ошибка получения стоимости сети: %w", err)
	}

	return value, nil
}
