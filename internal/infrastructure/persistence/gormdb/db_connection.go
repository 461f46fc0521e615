// Package gormdb persists the gateway's local journal (webhook events and
// platform activity) through GORM. Postgres in production, sqlite in tests.
package gormdb

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/montrose/hnwi-gateway/internal/config"
	"github.com/montrose/hnwi-gateway/internal/domain/models"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// DBConnection wraps the GORM handle.
type DBConnection struct {
	DB  *gorm.DB
	log logger.Logger
}

// NewDBConnection opens the Postgres journal database and migrates the
// journal tables.
func NewDBConnection(cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	conn := &DBConnection{DB: db, log: log}
	if err := conn.Migrate(); err != nil {
		return nil, err
	}

	log.Info(context.Background(), "journal database connected",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database),
	)
	return conn, nil
}

// NewWithGorm wraps an existing GORM handle. Used by tests with the sqlite
// driver.
func NewWithGorm(db *gorm.DB, log logger.Logger) (*DBConnection, error) {
	conn := &DBConnection{DB: db, log: log}
	if err := conn.Migrate(); err != nil {
		return nil, err
	}
	return conn, nil
}

// Migrate creates or updates the journal tables.
func (c *DBConnection) Migrate() error {
	return c.DB.AutoMigrate(&models.WebhookEvent{}, &models.PlatformEvent{})
}

// Ping checks database connectivity.
func (c *DBConnection) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (c *DBConnection) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
