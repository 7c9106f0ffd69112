package db

import (
	"fmt"

	"github.com/kasuganosora/enemyai/config"
	dbmysql "github.com/kasuganosora/enemyai/db/mysql"
	dbsqlite "github.com/kasuganosora/enemyai/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		db, err := dbsqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return db, nil
	case ModeMySQL:
		db, err := dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		})
		if err != nil {
			return nil, fmt.Errorf("db: open: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
