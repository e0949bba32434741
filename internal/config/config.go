package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config содержит все конфигурационные параметры приложения
type Config struct {
	Database  DatabaseConfig
	App       AppConfig
	Cache     CacheConfig
	Analysis  AnalysisConfig
	Scheduler SchedulerConfig
	Telegram  TelegramConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxConns      int
	MigrationPath string
}

type AppConfig struct {
	Env      string
	LogLevel string
	Port     int
}

// Бэкенды кэша
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig содержит настройки кэша результатов
type CacheConfig struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// AnalysisConfig содержит эвристики анализа сети
type AnalysisConfig struct {
	SuccessStage string
	ActiveMonths int
	DataQuality  float64
	TrendMonths  int
	SnapshotTTL  time.Duration
	RefreshLimit int
}

// SchedulerConfig содержит настройки периодического пересчета
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// TelegramConfig содержит настройки дайджеста в Telegram (необязательно)
type TelegramConfig struct {
	BotToken     string
	DigestChatID int64
}

// Load загружает конфигурацию из переменных окружения и .env
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Database
	cfg.Database.Host = getEnvDefault("DB_HOST", "localhost")
	cfg.Database.Port = getEnvIntDefault("DB_PORT", 5432)
	cfg.Database.User = os.Getenv("DB_USER")
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.Name = os.Getenv("DB_NAME")
	cfg.Database.SSLMode = getEnvDefault("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvIntDefault("DB_MAX_CONNS", 20)
	cfg.Database.MigrationPath = getEnvDefault("MIGRATION_PATH", "scripts/migrations")

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")
	cfg.App.Port = getEnvIntDefault("APP_PORT", 8080)

	// Cache
	cfg.Cache.Backend = getEnvDefault("CACHE_BACKEND", CacheBackendMemory)
	cfg.Cache.TTL = getEnvDurationDefault("CACHE_TTL", 5*time.Minute)
	cfg.Cache.RedisAddr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Cache.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.Cache.RedisDB = getEnvIntDefault("REDIS_DB", 0)
	cfg.Cache.RedisPrefix = getEnvDefault("REDIS_PREFIX", "surecrm:")

	// Analysis
	cfg.Analysis.SuccessStage = getEnvDefault("REFERRAL_SUCCESS_STAGE", "Contract Completed")
	cfg.Analysis.ActiveMonths = getEnvIntDefault("ANALYSIS_ACTIVE_MONTHS", 6)
	cfg.Analysis.DataQuality = getEnvFloatDefault("ANALYSIS_DATA_QUALITY", 8.5)
	cfg.Analysis.TrendMonths = getEnvIntDefault("ANALYSIS_TREND_MONTHS", 6)
	cfg.Analysis.SnapshotTTL = getEnvDurationDefault("SNAPSHOT_TTL", 24*time.Hour)
	cfg.Analysis.RefreshLimit = getEnvIntDefault("REFRESH_LIMIT", 500)

	// Scheduler
	cfg.Scheduler.Enabled = getEnvBoolDefault("SCHEDULER_ENABLED", true)
	cfg.Scheduler.Interval = getEnvDurationDefault("SCHEDULER_INTERVAL", 6*time.Hour)

	// Telegram
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.DigestChatID = int64(getEnvIntDefault("TELEGRAM_DIGEST_CHAT_ID", 0))

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("DB_HOST не установлен")
	}
	if config.Database.User == "" {
		return fmt.Errorf("DB_USER не установлен")
	}
	if config.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD не установлен")
	}
	if config.Database.Name == "" {
		return fmt.Errorf("DB_NAME не установлен")
	}
	if config.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS должен быть больше 0")
	}
	if config.Cache.Backend != CacheBackendMemory && config.Cache.Backend != CacheBackendRedis {
		return fmt.Errorf("поддерживаются только CACHE_BACKEND: memory, redis")
	}
	if config.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL должен быть положительным")
	}
	if config.Analysis.SuccessStage == "" {
		return fmt.Errorf("REFERRAL_SUCCESS_STAGE не установлен")
	}
	if config.Analysis.ActiveMonths < 1 {
		return fmt.Errorf("ANALYSIS_ACTIVE_MONTHS должен быть больше 0")
	}
	if config.Analysis.DataQuality < 0 || config.Analysis.DataQuality > 10 {
		return fmt.Errorf("ANALYSIS_DATA_QUALITY должен быть в диапазоне 0-10")
	}
	if config.Analysis.TrendMonths < 2 {
		return fmt.Errorf("ANALYSIS_TREND_MONTHS должен быть не меньше 2")
	}
	if config.Analysis.SnapshotTTL <= 0 {
		return fmt.Errorf("SNAPSHOT_TTL должен быть положительным")
	}
	if config.Analysis.RefreshLimit < 1 {
		return fmt.Errorf("REFRESH_LIMIT должен быть больше 0")
	}
	if config.Scheduler.Enabled && config.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL должен быть положительным")
	}
	if config.Telegram.DigestChatID != 0 && config.Telegram.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не установлен для дайджеста")
	}

	return nil
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// IsDevelopment проверяет, запущено ли приложение в режиме разработки
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction проверяет, запущено ли приложение в продакшн режиме
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// GetLogLevel возвращает уровень логирования в формате zap
func (c *AppConfig) GetLogLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

// DigestEnabled сообщает, настроен ли дайджест в Telegram
func (c *TelegramConfig) DigestEnabled() bool {
	return c.BotToken != "" && c.DigestChatID != 0
}
