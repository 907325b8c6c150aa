package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-product-api/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// newMigratedDB returns a fresh in-memory database with the full schema.
func newMigratedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func TestProductsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := ProductsStats(context.Background(), db)
	if err == nil {
		t.Fatalf("expected error due to missing products table")
	}
}

func TestProductsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Product{})
	count, maxAt, err := ProductsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("ProductsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestProductsStats_Success_MaxAndSoftDelete(t *testing.T) {
	db := newTestDB(t, &domain.Product{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max
	t3 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	for _, p := range []*domain.Product{
		{ID: "p1", Name: "a", CreatedAt: t1, UpdatedAt: t1},
		{ID: "p2", Name: "b", CreatedAt: t2, UpdatedAt: t2},
		{ID: "p3", Name: "c", CreatedAt: t3, UpdatedAt: t3},
	} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed %s: %v", p.ID, err)
		}
	}

	count, maxAt, err := ProductsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("ProductsStats error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected max updated_at %v, got %v", t2, maxAt)
	}

	// Soft-deleting the newest product changes both values.
	if err := db.Delete(&domain.Product{}, "id = ?", "p2").Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	count, maxAt, err = ProductsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("ProductsStats error: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t3) {
		t.Fatalf("after delete expected (2, %v), got (%d, %v)", t3, count, maxAt)
	}
}
