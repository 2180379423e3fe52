package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/melvy13/fruitveg-classifier-app/config"
	"github.com/melvy13/fruitveg-classifier-app/database"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
)

// OpenHistory opens the history engine selected by cfg. For sqlite the
// schema is migrated first, upgrading a version 1 table with table.
func OpenHistory(cfg config.Config, table *nutrition.Table) (HistoryRepositoryInterface, error) {
	switch cfg.HistoryBackend {
	case config.BackendBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.BoltPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create bolt directory: %w", err)
		}
		return NewBoltHistoryRepository(cfg.BoltPath)
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := database.InitGormDB(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		if _, err := database.MigrateHistory(db, table, filepath.Base(cfg.CapturesPath)); err != nil {
			_ = database.CloseGormDB(db)
			return nil, err
		}
		return NewGormHistoryRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown history backend '%s'", cfg.HistoryBackend)
	}
}
