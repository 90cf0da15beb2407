package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/sparklabs/spark-backend/internal/config"
	"github.com/sparklabs/spark-backend/internal/db"
	"github.com/sparklabs/spark-backend/internal/logger"
)

// Standalone seeder for demo environments. Wipes and repopulates the
// dataset regardless of APP_ENV, so keep it away from production.
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

	if err := db.SeedTestData(database); err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed data loaded")
}
