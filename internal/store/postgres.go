package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surecrm-network/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("запись не найдена")

// Store представляет интерфейс для работы с базой данных
type Store interface {
	Referral() ReferralRepository
	Influencer() InfluencerRepository
	Gratitude() GratitudeRepository
	Analysis() AnalysisRepository
	DB() *pgxpool.Pool
	Close() error
}

// store реализует интерфейс Store
type store struct {
	db         *pgxpool.Pool
	logger     *zap.Logger
	referral   ReferralRepository
	influencer InfluencerRepository
	gratitude  GratitudeRepository
	analysis   AnalysisRepository
}

// NewStore создает новое подключение к базе данных
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Создание пула подключений
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	// Настройка пула
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка проверки подключения к базе данных: %w", err)
	}

	logger.Info("успешное подключение к базе данных PostgreSQL",
		zap.String("host", cfg.Database.Host),
		zap.Int32("max_conns", poolConfig.MaxConns))

	s := &store{
		db:     db,
		logger: logger,
	}

	// Инициализация репозиториев
	s.referral = NewReferralRepository(db, cfg.Analysis.SuccessStage, logger)
	s.influencer = NewInfluencerRepository(db, logger)
	s.gratitude = NewGratitudeRepository(db, logger)
	s.analysis = NewAnalysisRepository(db, logger)

	return s, nil
}

// Referral возвращает репозиторий рефералов
func (s *store) Referral() ReferralRepository {
	return s.referral
}

// Influencer возвращает репозиторий профилей
func (s *store) Influencer() InfluencerRepository {
	return s.influencer
}

// Gratitude возвращает репозиторий благодарностей
func (s *store) Gratitude() GratitudeRepository {
	return s.gratitude
}

// Analysis возвращает репозиторий срезов анализа
func (s *store) Analysis() AnalysisRepository {
	return s.analysis
}

// DB возвращает подключение к базе данных
func (s *store) DB() *pgxpool.Pool {
	return s.db
}

// Close закрывает подключение к базе данных
func (s *store) Close() error {
	s.logger.Info("закрытие подключения к базе данных")
	s.db.Close()
	return nil
}
