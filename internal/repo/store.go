// Package repo implements the local replica layer: durable client-side
// persistence for restaurants, grouped review records, offline queues, and
// idempotency records, backed by GORM over SQLite (pure Go driver).
//
// This file contains the Store, a lazily-opened, memoized database handle.
// The handle is opened at most once per process: concurrent first-time
// callers share a single in-flight open and all observe the same *gorm.DB
// (or the same open error).
package repo

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tkaralis/go-restaurant-sync/internal/domain"
)

// Store owns the replica database handle. Construct with NewStore; the
// underlying SQLite file is not touched until the first DB() call.
type Store struct {
	path    string
	tracing bool

	once sync.Once
	db   *gorm.DB
	err  error
}

// NewStore returns a Store for the given SQLite path. When enableTracing is
// set, the GORM OpenTelemetry plugin is attached on open.
func NewStore(path string, enableTracing bool) *Store {
	return &Store{path: path, tracing: enableTracing}
}

// DB returns the shared database handle, opening it on first use. Every
// caller, including concurrent first-time callers, receives the result of
// the single open attempt.
func (s *Store) DB() (*gorm.DB, error) {
	s.once.Do(func() {
		s.db, s.err = s.open()
	})
	return s.db, s.err
}

// Close releases the underlying connection pool, if the store was opened.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// open creates or opens the SQLite file, applies PRAGMAs and pool settings,
// and migrates the schema.
func (s *Store) open() (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(s.path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if s.tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema. The upgrade path is additive only: AutoMigrate
// creates missing tables and columns and never drops existing data, which is
// what lets future schema versions extend the replica without loss.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Restaurant{},
		&domain.ReviewRecord{},
		&domain.KVEntry{},
		&domain.Idempotency{},
	)
}
