package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"mailfoxes/backend/internal/config"
	"mailfoxes/backend/internal/logger"
	"mailfoxes/backend/internal/service"
	"mailfoxes/backend/internal/spam"
	"mailfoxes/backend/internal/storage"
	"mailfoxes/backend/internal/storage/postgres"
	"mailfoxes/backend/internal/storage/sqlite"
)

// main 为存量邮件回填垃圾分。
//
// 用法:
//
//	backfill -source <source-id> [-limit N]
//	backfill -all [-limit N]
//
// 单封检测失败写入默认分 0 并继续，整批不中断。
func main() {
	sourceID := flag.String("source", "", "要回填的来源 ID")
	all := flag.Bool("all", false, "回填所有来源")
	limit := flag.Int("limit", 0, "每个来源最多回填的邮件数，0 表示不限制")
	flag.Parse()

	if *sourceID == "" && !*all {
		fmt.Println("usage: backfill -source <source-id> | -all [-limit N]")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	var store storage.Store
	switch cfg.Database.Type {
	case "postgres":
		pgStore, err := postgres.NewStore(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			log.Fatal("failed to open postgres", zap.Error(err))
		}
		store = pgStore
	case "sqlite":
		sqStore, err := sqlite.NewStore(cfg.Database.Path)
		if err != nil {
			log.Fatal("failed to open sqlite", zap.Error(err))
		}
		store = sqStore
	default:
		log.Fatal("backfill requires a persistent database",
			zap.String("database_type", cfg.Database.Type))
	}
	defer store.Close()

	sourceService := service.NewSourceService(store)
	emailService := service.NewEmailService(store, sourceService)
	emailService.SetSpamChecker(spam.NewChecker(cfg.Spam.Endpoint))

	var targets []string
	if *all {
		sources, err := sourceService.List(true)
		if err != nil {
			log.Fatal("failed to list sources", zap.Error(err))
		}
		for _, source := range sources {
			targets = append(targets, source.ID)
		}
	} else {
		targets = []string{*sourceID}
	}

	totalScored, totalFailed := 0, 0
	for _, target := range targets {
		result, err := emailService.BackfillSpamScores(target, *limit)
		if err != nil {
			log.Error("backfill failed for source", zap.String("source_id", target), zap.Error(err))
			continue
		}
		totalScored += result.Scored
		totalFailed += result.Failed
		log.Info("source backfilled",
			zap.String("source_id", target),
			zap.Int("scored", result.Scored),
			zap.Int("failed", result.Failed),
		)
	}

	log.Info("spam backfill complete",
		zap.Int("sources", len(targets)),
		zap.Int("scored", totalScored),
		zap.Int("failed", totalFailed),
	)
}
