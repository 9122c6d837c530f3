package repo

import (
	"log"

	"riichi-league/internal/config"
	"riichi-league/internal/model"
	"riichi-league/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := config.GlobalConfig.Database.DSN
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.Error(err),
		)
	}

	err = DB.AutoMigrate(
		&model.Player{},
		&model.Admin{},
		&model.Wallet{},
		&model.CoinLog{},
		&model.Round{},
		&model.RoundSeat{},
		&model.Badge{},
		&model.PlayerBadge{},
		&model.ActivityLog{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
