package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailfoxes/backend/internal/config"
	"mailfoxes/backend/internal/health"
	"mailfoxes/backend/internal/logger"
	"mailfoxes/backend/internal/monitoring"
	"mailfoxes/backend/internal/service"
	smtptransport "mailfoxes/backend/internal/smtp"
	"mailfoxes/backend/internal/spam"
	"mailfoxes/backend/internal/storage"
	"mailfoxes/backend/internal/storage/memory"
	"mailfoxes/backend/internal/storage/postgres"
	rediscache "mailfoxes/backend/internal/storage/redis"
	"mailfoxes/backend/internal/storage/sqlite"
	httptransport "mailfoxes/backend/internal/transport/http"
)

// main 是后端服务的程序入口：HTTP API 加可选的 SMTP 直收通道。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()
	log.Info("starting mailfoxes server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, err := newStore(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// 初始化服务层
	sourceService := service.NewSourceService(store)
	emailService := service.NewEmailService(store, sourceService)
	analysisService := service.NewAnalysisService(store, store)

	// 垃圾分检测（可选协作方）
	if cfg.Spam.Enabled {
		emailService.SetSpamChecker(spam.NewChecker(cfg.Spam.Endpoint))
		log.Info("spam checker enabled")
	}

	// 共享缓存（可选，多进程部署时共享分析结果）
	var sharedCache *rediscache.Cache
	if cfg.Redis.Address != "" {
		sharedCache, err = rediscache.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("failed to connect redis, continuing without shared cache", zap.Error(err))
		} else {
			analysisService.SetSharedCache(sharedCache)
			defer sharedCache.Close()
			log.Info("shared analysis cache enabled", zap.String("address", cfg.Redis.Address))
		}
	}

	// 监控与健康检查
	metrics := monitoring.NewMetrics()
	sourceService.SetMetrics(metrics)
	var cachePinger health.Pinger
	if sharedCache != nil {
		cachePinger = sharedCache
	}
	healthChecker := health.NewHealthChecker(store, cachePinger, log)

	// 创建 HTTP 路由
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		EmailService:    emailService,
		SourceService:   sourceService,
		AnalysisService: analysisService,
		Metrics:         metrics,
		Health:          healthChecker,
		Logger:          log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// 启动 HTTP 服务器
	group.Go(func() error {
		log.Info("HTTP server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 启动 SMTP 直收通道（可选）
	if cfg.SMTP.Enabled {
		smtpBackend := smtptransport.NewBackend(emailService, sourceService, true, log)
		smtpServer := smtptransport.NewServer(smtpBackend, cfg.SMTP.BindAddr, cfg.SMTP.Domain)

		group.Go(func() error {
			log.Info("SMTP server listening", zap.String("address", cfg.SMTP.BindAddr))
			if err := smtpServer.ListenAndServe(); err != nil {
				return fmt.Errorf("smtp server: %w", err)
			}
			return nil
		})

		group.Go(func() error {
			<-groupCtx.Done()
			return smtpServer.Close()
		})
	}

	// 等待退出信号后优雅关闭 HTTP
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return
	}
	log.Info("server stopped cleanly")
}

// newStore 按配置选择存储后端。未指定类型时使用内存存储（开发环境）。
func newStore(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.Database.Type {
	case "postgres":
		log.Info("using postgres storage")
		store, err := postgres.NewStore(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite":
		log.Info("using sqlite storage", zap.String("path", cfg.Database.Path))
		store, err := sqlite.NewStore(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		log.Info("using memory storage")
		return memory.NewStore(), nil
	}
}
