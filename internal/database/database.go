package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surfaces unique violations as gorm.ErrDuplicatedKey, which the
		// repositories map to their duplicate sentinel.
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

func Migrate() error {
	err := DB.AutoMigrate(
		&models.User{},
		&models.Report{},
		&models.Company{},
		&models.LoginAttempt{},
		&models.AttributeVersion{},
		&models.SystemLog{},
	)
	if err != nil {
		return err
	}

	// At most one open version per (kind, subject), enforced by the
	// database itself. AutoMigrate cannot express a partial index.
	return DB.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attr_versions_one_open
		 ON attribute_versions (kind, subject_id) WHERE valid_to IS NULL`,
	).Error
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
