package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig параметры подключения к Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis кэш, разделяемый между экземплярами сервиса
type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedis подключается к Redis и проверяет соединение
func NewRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("не указан адрес Redis")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}

	logger.Info("Redis кэш подключен", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))

	return NewRedisWithClient(client, cfg.Prefix, logger), nil
}

// NewRedisWithClient оборачивает готовый клиент
func NewRedisWithClient(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	if prefix == "" {
		prefix = "surecrm:"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Get возвращает значение или ErrCacheMiss
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения кэша: %w", err)
	}
	return data, nil
}

// Set сохраняет значение с TTL
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи кэша: %w", err)
	}
	return nil
}

// DeleteContaining удаляет ключи по шаблону *substr*
func (r *Redis) DeleteContaining(ctx context.Context, substr string) (int, error) {
	deleted := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*"+substr+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn("ошибка удаления ключа кэша", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("ошибка обхода ключей кэша: %w", err)
	}
	return deleted, nil
}

// Close закрывает соединение
func (r *Redis) Close() error {
	return r.client.Close()
}
