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

// GratitudeRepository определяет интерфейс для истории благодарностей
type GratitudeRepository interface {
	CreateWithActivity(ctx context.Context, record *models.GratitudeRecord, activity *models.ActivityLog) error
	UpdateStatus(ctx context.Context, record *models.GratitudeRecord, status models.GratitudeStatus, activity *models.ActivityLog) error
	GetByID(ctx context.Context, tenantID, id string) (*models.GratitudeRecord, error)
	GetHistory(ctx context.Context, tenantID string, limit int) ([]models.GratitudeHistoryItem, error)
	GetLastGratitudeDates(ctx context.Context, tenantID string, clientIDs []string) (map[string]time.Time, error)
	GetStats(ctx context.Context, tenantID string, from time.Time, months int) (*models.GratitudeStats, error)
	GetSendTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error)
}

// PostgresGratitudeRepository реализует GratitudeRepository для PostgreSQL
type PostgresGratitudeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewGratitudeRepository создает новый репозиторий благодарностей
func NewGratitudeRepository(db *pgxpool.Pool, logger *zap.Logger) GratitudeRepository {
	return &PostgresGratitudeRepository{
		db:     db,
		logger: logger,
	}
}

// CreateWithActivity сохраняет благодарность и запись журнала в одной транзакции.
// Даты последней благодарности и контакта в профиле обновляются в точке сохранения:
// ошибка там только логируется.
func (r *PostgresGratitudeRepository) CreateWithActivity(ctx context.Context, g *models.GratitudeRecord, activity *models.ActivityLog) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	insertGratitude := `
		INSERT INTO gratitude_history (
			id, agent_id, influencer_id, gratitude_type, gift_type, title, message,
			personalized_message, scheduled_date, sent_date, status, cost, vendor,
			is_recurring, recurring_interval, next_scheduled_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)`

	_, err = tx.Exec(ctx, insertGratitude,
		g.ID,
		g.AgentID,
		g.InfluencerID,
		g.GratitudeType,
		g.GiftType,
		g.Title,
		g.Message,
		g.PersonalizedMessage,
		g.ScheduledDate,
		g.SentDate,
		g.Status,
		g.Cost,
		g.Vendor,
		g.IsRecurring,
		g.RecurringInterval,
		g.NextScheduledDate,
		g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения благодарности: %w", err)
	}

	if err := insertActivity(ctx, tx, activity); err != nil {
		return err
	}

	r.touchProfile(ctx, tx, g)

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	r.logger.Info("благодарность сохранена",
		zap.String("tenant_id", g.AgentID),
		zap.String("gratitude_id", g.ID),
		zap.String("status", string(g.Status)))

	return nil
}

// sentStatuses статусы, которые считаются отправкой во всех выборках
const sentStatuses = `status IN ('sent', 'delivered', 'completed')`

const lastGratitudeDatesQuery = `
	SELECT p.client_id, MAX(COALESCE(g.sent_date, g.created_at))
	FROM gratitude_history g
	JOIN influencer_profiles p ON p.id = g.influencer_id AND p.agent_id = g.agent_id
	WHERE g.agent_id = $1
	  AND p.client_id = ANY($2::uuid[])
	  AND g.` + sentStatuses + `
	GROUP BY p.client_id`

// contactDate дата контакта для профиля; запланированная благодарность ее не дает
func contactDate(g *models.GratitudeRecord) (time.Time, bool) {
	if !g.Status.IsSent() {
		return time.Time{}, false
	}
	if g.SentDate != nil {
		return *g.SentDate, true
	}
	return g.CreatedAt, true
}

// touchProfile обновляет даты профиля во вложенной транзакции (SAVEPOINT)
func (r *PostgresGratitudeRepository) touchProfile(ctx context.Context, tx pgx.Tx, g *models.GratitudeRecord) {
	contacted, ok := contactDate(g)
	if !ok {
		return
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		r.logger.Warn("не удалось создать точку сохранения профиля", zap.Error(err))
		return
	}

	_, err = sp.Exec(ctx, `
		UPDATE influencer_profiles
		SET last_gratitude_date = $3, last_contact_date = $3, updated_at = $4
		WHERE agent_id = $1 AND id = $2`,
		g.AgentID, g.InfluencerID, contacted, g.CreatedAt)
	if err != nil {
		r.logger.Warn("ошибка обновления дат профиля",
			zap.String("influencer_id", g.InfluencerID),
			zap.Error(err))
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			r.logger.Warn("ошибка отката точки сохранения", zap.Error(rbErr))
		}
		return
	}

	if err := sp.Commit(ctx); err != nil {
		r.logger.Warn("ошибка освобождения точки сохранения", zap.Error(err))
	}
}

// insertActivity добавляет запись журнала; пустой ClientID берется из профиля
func insertActivity(ctx context.Context, tx pgx.Tx, a *models.ActivityLog) error {
	if a == nil {
		return nil
	}

	query := `
		INSERT INTO activity_logs (
			id, agent_id, influencer_id, client_id, action, description, metadata, created_at
		) VALUES (
			$1, $2, $3,
			COALESCE(NULLIF($4::text, '')::uuid, (SELECT client_id FROM influencer_profiles WHERE id = $3)),
			$5, $6, $7, $8
		)`

	_, err := tx.Exec(ctx, query,
		a.ID,
		a.AgentID,
		a.InfluencerID,
		a.ClientID,
		a.Action,
		a.Description,
		a.Metadata,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал действий: %w", err)
	}
	return nil
}

// UpdateStatus меняет статус благодарности, если он не изменился с момента чтения
func (r *PostgresGratitudeRepository) UpdateStatus(ctx context.Context, g *models.GratitudeRecord, status models.GratitudeStatus, activity *models.ActivityLog) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE gratitude_history
		SET status = $4,
		    sent_date = CASE WHEN $4 = 'sent' THEN COALESCE(sent_date, $5) ELSE sent_date END,
		    delivered_date = CASE WHEN $4 = 'delivered' THEN $5 ELSE delivered_date END,
		    updated_at = $5
		WHERE agent_id = $1 AND id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, g.AgentID, g.ID, g.Status, status, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса благодарности: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := insertActivity(ctx, tx, activity); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка подтверждения транзакции: %w", err)
	}

	return nil
}

// GetByID получает благодарность по ID
func (r *PostgresGratitudeRepository) GetByID(ctx context.Context, tenantID, id string) (*models.GratitudeRecord, error) {
	query := `
		SELECT id, agent_id, influencer_id, gratitude_type, gift_type, title, message,
		       personalized_message, scheduled_date, sent_date, delivered_date, status,
		       cost::float8, vendor, tracking_number, recipient_feedback,
		       is_recurring, recurring_interval, next_scheduled_date, created_at, updated_at
		FROM gratitude_history
		WHERE agent_id = $1 AND id = $2`

	g := &models.GratitudeRecord{}
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(
		&g.ID,
		&g.AgentID,
		&g.InfluencerID,
		&g.GratitudeType,
		&g.GiftType,
		&g.Title,
		&g.Message,
		&g.PersonalizedMessage,
		&g.ScheduledDate,
		&g.SentDate,
		&g.DeliveredDate,
		&g.Status,
		&g.Cost,
		&g.Vendor,
		&g.TrackingNumber,
		&g.RecipientFeedback,
		&g.IsRecurring,
		&g.RecurringInterval,
		&g.NextScheduledDate,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения благодарности: %w", err)
	}

	return g, nil
}

// GetHistory получает последние благодарности агента с именем получателя
func (r *PostgresGratitudeRepository) GetHistory(ctx context.Context, tenantID string, limit int) ([]models.GratitudeHistoryItem, error) {
	query := `
		SELECT g.id, g.influencer_id, p.client_id, COALESCE(c.full_name, ''),
		       g.gratitude_type, g.gift_type, g.title, g.message, g.status,
		       g.scheduled_date, g.sent_date, g.delivered_date, g.cost::float8, g.created_at
		FROM gratitude_history g
		JOIN influencer_profiles p ON p.id = g.influencer_id AND p.agent_id = g.agent_id
		LEFT JOIN clients c ON c.id = p.client_id
		WHERE g.agent_id = $1
		ORDER BY g.created_at DESC, g.id
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории благодарностей: %w", err)
	}
	defer rows.Close()

	items := make([]models.GratitudeHistoryItem, 0, limit)
	for rows.Next() {
		var item models.GratitudeHistoryItem
		err := rows.Scan(
			&item.ID,
			&item.InfluencerID,
			&item.ClientID,
			&item.InfluencerName,
			&item.GratitudeType,
			&item.GiftType,
			&item.Title,
			&item.Message,
			&item.Status,
			&item.ScheduledDate,
			&item.SentDate,
			&item.DeliveredDate,
			&item.Cost,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования благодарности: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения истории благодарностей: %w", err)
	}

	return items, nil
}

// GetLastGratitudeDates получает дату последней благодарности по каждому клиенту
func (r *PostgresGratitudeRepository) GetLastGratitudeDates(ctx context.Context, tenantID string, clientIDs []string) (map[string]time.Time, error) {
	dates := make(map[string]time.Time)
	if len(clientIDs) == 0 {
		return dates, nil
	}

	rows, err := r.db.Query(ctx, lastGratitudeDatesQuery, tenantID, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения дат благодарностей: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clientID string
		var last time.Time
		if err := rows.Scan(&clientID, &last); err != nil {
			return nil, fmt.Errorf("ошибка сканирования даты благодарности: %w", err)
		}
		dates[clientID] = last
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения дат благодарностей: %w", err)
	}

	return dates, nil
}

// GetStats получает итоги благодарностей; частота — отправки в месяц начиная с from
func (r *PostgresGratitudeRepository) GetStats(ctx context.Context, tenantID string, from time.Time, months int) (*models.GratitudeStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(cost), 0)::float8,
		       COUNT(*) FILTER (WHERE COALESCE(sent_date, created_at) >= $2)
		FROM gratitude_history
		WHERE agent_id = $1
		  AND ` + sentStatuses

	stats := &models.GratitudeStats{}
	var recent int
	if err := r.db.QueryRow(ctx, query, tenantID, from).Scan(&stats.TotalSent, &stats.TotalCost, &recent); err != nil {
		return nil, fmt.Errorf("ошибка получения статистики благодарностей: %w", err)
	}

	if months > 0 {
		stats.MonthlyFrequency = float64(recent) / float64(months)
	}

	return stats, nil
}

// GetSendTrend возвращает количество отправленных благодарностей по месяцам
func (r *PostgresGratitudeRepository) GetSendTrend(ctx context.Context, tenantID string, from time.Time) (map[string]float64, error) {
	query := `
		SELECT to_char(date_trunc('month', COALESCE(sent_date, created_at)), 'YYYY-MM') AS month,
		       COUNT(*)::float8
		FROM gratitude_history
		WHERE agent_id = $1
		  AND ` + sentStatuses + `
		  AND COALESCE(sent_date, created_at) >= $2
		GROUP BY month`

	rows, err := r.db.Query(ctx, query, tenantID, from)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ряда благодарностей: %w", err)
	}
	defer rows.Close()

	values := make(map[string]float64)
	for rows.Next() {
		var month string
		var count float64
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ряда благодарностей: %w", err)
		}
		values[month] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения ряда благодарностей: %w", err)
	}

	return values, nil
}
