package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/marqueelabs/airwave/backend/internal/radio"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
// The unique index on (show_id, song_id, week_start_date) declared on the
// playlist model is what makes the weekly aggregator's find-or-create safe
// under concurrent settlements.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&radio.Submission{},
		&radio.Station{},
		&radio.Show{},
		&radio.Song{},
		&radio.Band{},
		&radio.PlaylistEntry{},
		&radio.PlayRecord{},
		&radio.FameEvent{},
		&radio.EarningsEntry{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
