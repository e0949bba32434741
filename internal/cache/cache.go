package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL время жизни вычисленных результатов
const DefaultTTL = 5 * time.Minute

// ErrCacheMiss ключ отсутствует или устарел
var ErrCacheMiss = errors.New("cache miss")

// Cache хранилище вычисленных результатов с TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteContaining удаляет все ключи, содержащие подстроку, и возвращает их количество
	DeleteContaining(ctx context.Context, substr string) (int, error)
	Close() error
}

// Clock источник текущего времени
type Clock func() time.Time

// GetJSON читает значение и декодирует его в dst
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("ошибка декодирования значения кэша %s: %w", key, err)
	}
	return nil
}

// SetJSON кодирует значение и сохраняет его
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка кодирования значения кэша %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// Noop реализует Cache без хранения данных
type Noop struct{}

// Get всегда возвращает ErrCacheMiss
func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

// Set ничего не сохраняет
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// DeleteContaining ничего не удаляет
func (Noop) DeleteContaining(context.Context, string) (int, error) { return 0, nil }

// Close ничего не делает
func (Noop) Close() error { return nil }
