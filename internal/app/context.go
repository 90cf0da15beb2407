package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/sparklabs/spark-backend/internal/cache"
	"github.com/sparklabs/spark-backend/internal/config"
	"github.com/sparklabs/spark-backend/internal/realtime"
	"github.com/sparklabs/spark-backend/internal/storage"
)

// AppContext holds shared dependencies (DB, Redis, Logger, realtime hub,
// image store) injected into request handlers.
type AppContext struct {
	Cfg        *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Hub        *realtime.Hub
	Images     storage.ImageStore
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, hub *realtime.Hub, images storage.ImageStore) *AppContext {
	return &AppContext{
		Cfg:        cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Hub:        hub,
		Images:     images,
	}
}
