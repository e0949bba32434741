package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"surecrm-network/internal/cache"
	"surecrm-network/internal/config"
	"surecrm-network/internal/metrics"
	"surecrm-network/internal/notify"
	"surecrm-network/internal/referral"
	"surecrm-network/internal/scheduler"
	"surecrm-network/internal/store"
)

// App зависимости сервиса аналитики, общие для сервера и CLI
type App struct {
	Store    store.Store
	Cache    cache.Cache
	Metrics  *metrics.Metrics
	Service  *referral.Service
	Notifier scheduler.DigestNotifier
	logger   *zap.Logger
}

// NewLogger создает логгер по настройкам приложения.
// В разработке пишет в консоль и logs/, иначе JSON в stdout.
func NewLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	if !cfg.IsDevelopment() {
		zc := zap.NewProductionConfig()
		zc.Level = cfg.GetLogLevel()
		return zc.Build()
	}

	zc := zap.NewDevelopmentConfig()
	zc.Level = cfg.GetLogLevel()
	zc.OutputPaths = []string{"stdout", "logs/app.log"}
	zc.ErrorOutputPaths = []string{"stderr", "logs/error.log"}

	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
	}

	return zc.Build()
}

// New подключает базу, кэш и собирает сервис
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	st, err := store.NewStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации базы данных: %w", err)
	}

	c, err := NewCache(ctx, &cfg.Cache, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	m := metrics.New(logger)

	a := &App{
		Store:   st,
		Cache:   c,
		Metrics: m,
		Service: referral.NewServiceFromStore(st, c, m, referral.OptionsFromConfig(cfg), logger),
		logger:  logger,
	}

	if cfg.Telegram.DigestEnabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.DigestChatID, logger)
		if err != nil {
			// Дайджест необязателен, сервис работает без него
			logger.Warn("дайджест в Telegram отключен", zap.Error(err))
		} else {
			a.Notifier = tg
		}
	}

	return a, nil
}

// NewCache создает кэш выбранного бэкенда
func NewCache(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.CacheBackendMemory, "":
		logger.Info("используется кэш в памяти процесса", zap.Duration("ttl", cfg.TTL))
		return cache.NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("неизвестный бэкенд кэша: %s", cfg.Backend)
	}
}

// SnapshotJob задача периодического пересчета сетей
func (a *App) SnapshotJob() *scheduler.SnapshotJob {
	return scheduler.NewSnapshotJob(a.Service, a.Notifier, a.logger)
}

// Close освобождает соединения
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.logger.Warn("ошибка закрытия кэша", zap.Error(err))
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Warn("ошибка закрытия базы данных", zap.Error(err))
	}
}
