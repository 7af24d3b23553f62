package main

import (
	"fmt"

	"go.uber.org/zap"

	"mailfoxes/backend/internal/config"
	"mailfoxes/backend/internal/logger"
	"mailfoxes/backend/internal/service"
	"mailfoxes/backend/internal/storage"
	"mailfoxes/backend/internal/storage/postgres"
	"mailfoxes/backend/internal/storage/sqlite"
)

// main 执行数据库结构迁移并应用展示名种子数据。
//
// 种子应用只发生在这里，请求路径上绝不重复执行。
// 种子按当前展示名匹配，重复运行不会产生额外改动。
func main() {
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
		log.Fatal("migrate requires a persistent database",
			zap.String("database_type", cfg.Database.Type))
	}
	defer store.Close()

	log.Info("schema migration complete", zap.String("database_type", cfg.Database.Type))

	updated, err := service.ApplyDisplayNameSeeds(store, log)
	if err != nil {
		log.Fatal("failed to apply display name seeds", zap.Error(err))
	}
	log.Info("display name seeds applied", zap.Int("updated", updated))
}
