package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/maanas1234/Celestia-Hackathon/models"
)

// InitGormDB initializes and returns a GORM database instance. stdLog receives
// gorm's own log lines; pass nil to silence them.
func InitGormDB(dataSourceName string, stdLog *log.Logger) (*gorm.DB, error) {
	gormLogger := logger.Discard
	if stdLog != nil {
		gormLogger = logger.New(
			stdLog,
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	}

	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	// enable write-ahead logging so dashboard reads do not block ingest
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		if stdLog != nil {
			stdLog.Printf("warning: failed to set WAL mode: %v", err)
		}
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// AutoMigrateModels migrates the alert log schema.
func AutoMigrateModels(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Alert{}); err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	return nil
}
