package storage

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clipsync-server-go/internal/platform/errors"
)

// Open creates the SQLite database handle, creating the parent directory if
// needed.
func Open(path string) (*gorm.DB, error) {
	const op = "storage.open"

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.KindStorage, op, "create database directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "open sqlite database", err)
	}

	// SQLite allows one writer; WAL keeps readers unblocked during syncs.
	if err := db.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "enable WAL", err)
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "enable foreign keys", err)
	}
	return db, nil
}
