package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// sweepInterval как часто Set вычищает устаревшие записи
const sweepInterval = time.Minute

type entry struct {
	value     []byte
	timestamp time.Time
	ttl       time.Duration
}

// Memory кэш в памяти процесса. Не разделяется между экземплярами.
type Memory struct {
	mu      sync.RWMutex
	entries   map[string]entry
	now       Clock
	lastSweep time.Time
}

// NewMemory создает кэш в памяти; nil clock означает time.Now
func NewMemory(clock Clock) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		entries:   make(map[string]entry),
		now:       clock,
		lastSweep: clock(),
	}
}

// Get возвращает значение, пока now - timestamp < ttl
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}

	if m.now().Sub(e.timestamp) >= e.ttl {
		m.mu.Lock()
		// запись могла быть перезаписана между блокировками
		if cur, ok := m.entries[key]; ok && cur.timestamp.Equal(e.timestamp) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrCacheMiss
	}

	return e.value, nil
}

// Set сохраняет значение с отметкой текущего времени
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := m.now()

	m.mu.Lock()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	m.entries[key] = entry{value: value, timestamp: now, ttl: ttl}
	m.mu.Unlock()
	return nil
}

// sweep удаляет устаревшие записи; вызывается под блокировкой
func (m *Memory) sweep(now time.Time) {
	for key, e := range m.entries {
		if now.Sub(e.timestamp) >= e.ttl {
			delete(m.entries, key)
		}
	}
	m.lastSweep = now
}

// DeleteContaining удаляет ключи, содержащие подстроку
func (m *Memory) DeleteContaining(_ context.Context, substr string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key := range m.entries {
		if strings.Contains(key, substr) {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len возвращает количество записей, включая устаревшие
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close очищает кэш
func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}
