package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/audit"
	"github.com/soubhik-sen/FLUXPORT/internal/engine"
	"github.com/soubhik-sen/FLUXPORT/internal/infra"
	"github.com/soubhik-sen/FLUXPORT/internal/metadata"
	"github.com/soubhik-sen/FLUXPORT/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()

	// Контекст жизненного цикла фоновых горутин: SIGTERM останавливает слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store, err := postgres.NewStore(appCtx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to create postgres pool", zap.Error(err))
	}
	defer store.Close()

	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	// 3. Control Plane: runtime kill switch + инвалидация кэша документа
	ksm := engine.NewKillSwitchManager(rdb, logger)
	if err := ksm.Init(appCtx); err != nil {
		// Недоступный Redis не блокирует старт: движок считается включенным
		logger.Warn("kill switch init failed, starting with engine enabled", zap.Error(err))
	}
	go ksm.StartListener(appCtx)

	// 4. Источник документа политик: БД за обвязкой надежности, файл, дефолты
	var reader metadata.PublishedReader
	if cfg.Framework.Enabled && cfg.Framework.ReadMode == metadata.ReadModeDB {
		reader = engine.NewReliabilityWrapper(store, cfg.Framework.ReadTimeout, metrics)
	}
	source := metadata.NewSource(cfg, reader, logger)
	go engine.StartInvalidationListener(appCtx, rdb, logger, source, metrics)

	// 5. Выборочный аудит решений
	var recorder *audit.Recorder
	var sampler *audit.Sampler
	if cfg.Audit.Enabled {
		auditRepo := postgres.NewAuditRepo(cfg.Database.URL)
		recorder = audit.NewRecorder(auditRepo, cfg.Audit.BufferSize, cfg.Audit.FlushInterval, logger)
		recorder.Start()
		sampler = audit.NewSampler(recorder, true, cfg.Audit.Verbose, cfg.Audit.SampleRate)
	} else {
		sampler = audit.NewSampler(nil, false, false, 0)
	}

	// Экспортируем метрики для Prometheus
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(addr, metricsMux); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// 6. Core (сборка движка решений)
	core := engine.NewCore(cfg.Policy, source, store, ksm, sampler, metrics, logger)

	mux := http.NewServeMux()
	mux.Handle("/v1/decision", engine.TracingMiddleware(http.HandlerFunc(core.HandleDecision)))
	mux.HandleFunc("/health", core.HandleHealth)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("scope decision service started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("scope decision service stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Останавливаем фоновые горутины и дожимаем буфер аудита
	cancel()
	if recorder != nil {
		recorder.Stop()
	}
	logger.Info("scope decision service exited properly")
}
