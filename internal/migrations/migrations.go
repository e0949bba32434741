package migrations

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"surecrm-network/internal/config"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// RunMigrations применяет миграции к базе данных
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("начало применения миграций")

	db, migrationPath, err := prepare(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.Up(db, migrationPath); err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	logger.Info("миграции успешно применены")
	return nil
}

// GetMigrationStatus выводит статус миграций
func GetMigrationStatus(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("проверка статуса миграций")

	db, migrationPath, err := prepare(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.Status(db, migrationPath); err != nil {
		return fmt.Errorf("ошибка получения статуса миграций: %w", err)
	}

	logger.Info("статус миграций получен")
	return nil
}

func prepare(cfg *config.Config, logger *zap.Logger) (*sql.DB, string, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, "", fmt.Errorf("ошибка установки диалекта: %w", err)
	}

	// Временное подключение через database/sql, goose не работает с pgxpool
	db, err := sql.Open("postgres", migrationDSN(&cfg.Database))
	if err != nil {
		return nil, "", fmt.Errorf("ошибка подключения к базе данных для миграций: %w", err)
	}

	return db, getMigrationPath(cfg.Database.MigrationPath, logger), nil
}

// migrationDSN строит URL подключения для lib/pq
func migrationDSN(c *config.DatabaseConfig) string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// getMigrationPath определяет правильный путь к миграциям
func getMigrationPath(configPath string, logger *zap.Logger) string {
	if _, err := os.Stat(configPath); err == nil {
		logger.Info("используем путь к миграциям из конфигурации", zap.String("path", configPath))
		return configPath
	}

	currentDir, err := os.Getwd()
	if err != nil {
		logger.Warn("не удалось получить текущую директорию, используем путь из конфигурации", zap.Error(err))
		return configPath
	}

	possiblePaths := []string{
		filepath.Join(currentDir, "scripts", "migrations"),
		filepath.Join(currentDir, "migrations"),
		filepath.Join(currentDir, "..", "scripts", "migrations"),
		filepath.Join(currentDir, "..", "..", "scripts", "migrations"),
		"/app/scripts/migrations", // Для Docker контейнера
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			logger.Info("найден путь к миграциям", zap.String("path", path))
			return path
		}
	}

	logger.Warn("не удалось найти директорию с миграциями, используем путь из конфигурации", zap.String("path", configPath))
	return configPath
}
