package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/sparklabs/spark-backend/internal/app"
	"github.com/sparklabs/spark-backend/internal/cache"
	"github.com/sparklabs/spark-backend/internal/config"
	"github.com/sparklabs/spark-backend/internal/db"
	"github.com/sparklabs/spark-backend/internal/logger"
	"github.com/sparklabs/spark-backend/internal/realtime"
	"github.com/sparklabs/spark-backend/internal/server"
	"github.com/sparklabs/spark-backend/internal/service/auth"
	"github.com/sparklabs/spark-backend/internal/service/chat"
	"github.com/sparklabs/spark-backend/internal/service/discovery"
	"github.com/sparklabs/spark-backend/internal/service/profile"
	"github.com/sparklabs/spark-backend/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	rdb := cache.NewRedisCache(cfg)
	if err := rdb.Ping(context.Background()); err != nil {
		log.Error("redis connection failed", "err", err)
		os.Exit(1)
	}

	images, err := storage.NewS3ImageStore(context.Background(), cfg)
	if err != nil {
		log.Error("image store init failed", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(cfg, database, rdb, log, realtime.NewHub(), images)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("seeding failed", "err", err)
			os.Exit(1)
		}
		log.Info("development seed data loaded")
	}

	registrars := []server.Registrar{
		auth.NewRegistrar(appCtx),
		profile.NewRegistrar(appCtx),
		discovery.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx),
	}

	log.Info("starting server", "host", cfg.HTTP.Host, "port", cfg.HTTP.Port, "env", cfg.App.ENV)
	if err := server.Start(appCtx, registrars...); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
