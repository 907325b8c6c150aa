// Package repo is the GORM persistence layer of the catalogue: users and
// their roles, permissions, products, access tokens and idempotency records.
// Functions take the *gorm.DB (or transaction) to run on, so services decide
// transaction boundaries.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-product-api/internal/domain"
)

// sqlitePragmas run on every new database handle. WAL lets readers proceed
// during a write; foreign_keys makes token and role rows follow their user.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// OpenSQLite opens (or creates) the SQLite file at path, applies the pragmas
// and tunes the connection pool. The parent directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return db, nil
}

// sqliteDSN repeats the per-connection pragmas as DSN parameters so every
// pooled connection gets them, not only the one that ran sqlitePragmas.
func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Instrument registers the GORM OpenTelemetry plugin so every query becomes a
// child span of the request span carried in the statement context.
func Instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&domain.Permission{},
		&domain.Role{},
		&domain.User{},
		&domain.Product{},
		&domain.AccessToken{},
		&domain.Idempotency{},
	}
}

// AutoMigrate creates or updates the tables of Models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
