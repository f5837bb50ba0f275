package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

// SQLiteService backs local development, the CLI and repo tests.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSQLiteService opens path, creating parent directories. ":memory:" opens
// a private in-memory database pinned to a single connection.
func NewSQLiteService(logg *logger.Logger, path string) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")
	path = strings.TrimSpace(path)
	if path == "" {
		path = "carousel.db"
	}
	memory := path == ":memory:"
	if !memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	dsn := path
	if !memory {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=off"
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; memory databases are per connection.
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteService{db: db, log: serviceLog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *SQLiteService) Close() error { return closeDB(s.db) }

// Open picks the backend named by driver ("postgres" or "sqlite").
func Open(logg *logger.Logger, driver, postgresDSN, sqlitePath string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql":
		return NewPostgresService(logg, postgresDSN)
	case "sqlite", "sqlite3":
		return NewSQLiteService(logg, sqlitePath)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}
