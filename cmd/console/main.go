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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/console/handler"
	"github.com/soubhik-sen/FLUXPORT/internal/console/server"
	"github.com/soubhik-sen/FLUXPORT/internal/console/service"
	"github.com/soubhik-sen/FLUXPORT/internal/domain"
	"github.com/soubhik-sen/FLUXPORT/internal/infra"
	"github.com/soubhik-sen/FLUXPORT/internal/infra/auth"
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

	// 2. Инициализация ресурсов
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.NewStore(appCtx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to create postgres pool", zap.Error(err))
	}
	defer store.Close()

	// Проверяем соединение с таймаутом
	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	// 3. RSA ключи: консоль подписывает токены закрытым ключом
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("private key unusable", zap.Error(err))
	}
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("public key unusable", zap.Error(err))
	}
	validator := auth.NewBaseValidator(publicKey)

	// 4. Инициализация слоев (Dependency Injection)
	policyService := service.NewPolicyService(store, rdb, logger)
	authService := service.NewAuthService(store, privateKey, cfg.Auth.TokenTTL)
	auditService := service.NewAuditService(store)
	dashService := service.NewDashboardService(store)

	// Тип, который читает движок решений, должен существовать до первого черновика
	regCtx, regCancel := context.WithTimeout(appCtx, 5*time.Second)
	if _, err := policyService.RegisterType(regCtx, domain.TypeKeyRoleScopePolicy,
		"Role scope policy", "Видимость данных по ролям и измерениям"); err != nil {
		logger.Warn("failed to register built-in policy type", zap.Error(err))
	}
	regCancel()

	consoleSrv := server.NewConsoleServer(
		cfg,
		logger,
		validator,
		handler.NewAuthHandler(authService),
		handler.NewPolicyHandler(policyService),
		handler.NewDashboardHandler(dashService),
		handler.NewAuditHandler(auditService),
	)

	// 5. Запуск сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("console API stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("console API exited properly")
}
