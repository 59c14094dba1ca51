package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
)

// MemorySQLiteURL opens a private in-memory database
const MemorySQLiteURL = "sqlite::memory:"

// SQLiteDB wraps a gorm handle on an embedded SQLite database
type SQLiteDB struct {
	DB *gorm.DB
}

// NewSQLite opens the SQLite file (or in-memory database) named by the URL
func NewSQLite(cfg config.DatabaseConfig) (*SQLiteDB, error) {
	dsn, err := SQLiteDSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Ensure the directory exists
	if !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// One connection keeps a shared in-memory database alive.
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteDB{DB: db}, nil
}

// SQLiteDSN maps sqlite://path and sqlite::memory: onto driver DSNs
func SQLiteDSN(rawURL string) (string, error) {
	if rawURL == MemorySQLiteURL {
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil
	}

	for _, prefix := range []string{"sqlite://", "sqlite3://"} {
		if strings.HasPrefix(rawURL, prefix) {
			path := strings.TrimPrefix(rawURL, prefix)
			if path == "" {
				return "", fmt.Errorf("sqlite url has no path")
			}
			return path, nil
		}
	}

	if strings.HasPrefix(rawURL, "file:") {
		return rawURL, nil
	}
	return "", fmt.Errorf("not a sqlite url: %q", rawURL)
}

// HealthCheck checks database health
func (s *SQLiteDB) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (s *SQLiteDB) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
