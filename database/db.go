// Package database opens the relational store and implements the book repositories.
package database

import (
	"errors"
	"fmt"

	"github.com/bookshelf/bookshelf/config"
	"github.com/bookshelf/bookshelf/database/model"
	"github.com/bookshelf/bookshelf/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func initModels(db *gorm.DB) error {
	models := []any{
		&model.User{},
		&model.Book{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			logger.Errorf("Error auto migrating model %T: %v", m, err)
			return err
		}
	}
	return nil
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case config.DatabaseTypeSQLite:
		return sqlite.Open(cfg.GetDSN()), nil
	case config.DatabaseTypePostgreSQL:
		return postgres.Open(cfg.GetDSN()), nil
	case config.DatabaseTypeMySQL:
		return mysql.Open(cfg.GetDSN()), nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
}

// InitDB opens the configured database and migrates the schema.
func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectoryExists(); err != nil {
		return nil, err
	}

	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	var gormLogger gormlogger.Interface
	if debug {
		gormLogger = gormlogger.Default
	} else {
		gormLogger = gormlogger.Discard
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, err
	}

	if cfg.IsSQLite() {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA cache_size = -64000;",
			"PRAGMA temp_store = MEMORY;",
			"PRAGMA foreign_keys = ON;",
		} {
			if _, err := sqlDB.Exec(pragma); err != nil {
				return nil, err
			}
		}
	}

	if err := initModels(db); err != nil {
		return nil, err
	}
	return db, nil
}

// CloseDB checkpoints the WAL of SQLite databases and closes the pool.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if db.Dialector.Name() == "sqlite" {
		if err := Checkpoint(db); err != nil {
			logger.Warningf("error executing checkpoint: %v", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Checkpoint(db *gorm.DB) error {
	return db.Exec("PRAGMA wal_checkpoint;").Error
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
