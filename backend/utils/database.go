package utils

import (
	"fmt"
	"log"
	"os"
	"time"

	"apollo/backend/config"
	"apollo/backend/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB открывает соединение с базой согласно DB_DRIVER
func InitDB(cfg *config.Config, l *log.Logger) (*gorm.DB, error) {
	if l == nil {
		l = log.New(os.Stdout, "[Apollo] ", log.LstdFlags)
	}
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(l, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	switch cfg.DBDriver {
	case "sqlite":
		return OpenSQLite(cfg.DBName, gormCfg)
	default:
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
		return db, nil
	}
}

// OpenSQLite используется для локальной разработки и тестов. Одно соединение
// держит in-memory базу согласованной внутри транзакции
func OpenSQLite(dsn string, gormCfg ...*gorm.Config) (*gorm.DB, error) {
	c := &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)}
	if len(gormCfg) > 0 && gormCfg[0] != nil {
		c = gormCfg[0]
	}
	db, err := gorm.Open(sqlite.Open(dsn), c)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
