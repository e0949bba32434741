package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surecrm-network/internal/api"
	"surecrm-network/internal/app"
	"surecrm-network/internal/config"
	"surecrm-network/internal/metrics"
	"surecrm-network/internal/migrations"
	"surecrm-network/internal/scheduler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger, err := app.NewLogger(&cfg.App)
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("запуск сервиса аналитики реферальной сети",
		zap.String("env", cfg.App.Env),
		zap.String("cache", cfg.Cache.Backend))

	// Применение миграций
	if err := migrations.RunMigrations(cfg, logger); err != nil {
		logger.Fatal("ошибка применения миграций", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("ошибка инициализации сервиса", zap.Error(err))
	}
	defer a.Close()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsHandler := metrics.NewHandler(a.Metrics, a.Store.DB(), logger)
	router := api.NewRouter(api.NewHandler(a.Service, logger), metricsHandler, logger)

	// Планировщик пересчета профилей и срезов
	if cfg.Scheduler.Enabled {
		taskScheduler := scheduler.NewScheduler(logger)
		taskScheduler.AddJob(a.SnapshotJob())
		go taskScheduler.Start(ctx, cfg.Scheduler.Interval)
	} else {
		logger.Info("планировщик отключен")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverDone := make(chan struct{})
	go func() {
		startHTTPServer(ctx, cfg.App.Port, router, logger)
		close(serverDone)
	}()

	logger.Info("сервис запущен и готов к работе",
		zap.String("address", fmt.Sprintf("http://localhost:%d", cfg.App.Port)))

	<-sigChan
	logger.Info("получен сигнал завершения, начинаем graceful shutdown")

	cancel()

	select {
	case <-serverDone:
	case <-time.After(30 * time.Second):
		logger.Warn("HTTP сервер не остановился вовремя")
	}

	logger.Info("сервис завершен")
}

// startHTTPServer обслуживает API до отмены контекста
func startHTTPServer(ctx context.Context, port int, handler http.Handler, logger *zap.Logger) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("HTTP сервер запущен", zap.String("address", server.Addr))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ошибка HTTP сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка при остановке HTTP сервера", zap.Error(err))
	}

	logger.Info("HTTP сервер остановлен")
}
