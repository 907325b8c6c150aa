package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(User{}).TableName():        "users",
		(Role{}).TableName():        "roles",
		(Permission{}).TableName():  "permissions",
		(Product{}).TableName():     "products",
		(AccessToken{}).TableName(): "access_tokens",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Permission{}, &Role{}, &User{}, &Product{}, &AccessToken{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&User{}, &Role{}, &Permission{}, &Product{}, &AccessToken{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	for _, join := range []string{"user_roles", "role_permissions"} {
		if !m.HasTable(join) {
			t.Fatalf("expected join table %s", join)
		}
	}
	if !m.HasIndex(&User{}, "ux_users_email") {
		t.Fatalf("expected unique index ux_users_email on users")
	}
	if !m.HasIndex(&Role{}, "ux_roles_name") {
		t.Fatalf("expected unique index ux_roles_name on roles")
	}
	if !m.HasIndex(&AccessToken{}, "idx_tokens_user") {
		t.Fatalf("expected index idx_tokens_user on access_tokens")
	}

	now := time.Now().UTC()
	u := &User{ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}

	// Unique email
	dup := &User{ID: "u2", Name: "Other", Email: "ann@example.com", PasswordHash: "h"}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation on email")
	}

	tok := &AccessToken{ID: "t1", UserID: "u1", Name: "auth_token", ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(tok).Error; err != nil {
		t.Fatalf("insert token: %v", err)
	}

	// CASCADE: deleting the user removes its tokens
	if err := db.Delete(&User{}, "id = ?", "u1").Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var cnt int64
	if err := db.Model(&AccessToken{}).Where("user_id = ?", "u1").Count(&cnt).Error; err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected tokens to cascade-delete with user, got count=%d", cnt)
	}

	// Product checks reject negative values
	bad := &Product{ID: "p1", Name: "Neg", Price: -1}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected check constraint violation for negative price")
	}

	// Soft delete hides the product from default scope
	p := &Product{ID: "p2", Name: "Widget", Price: 9.5, Stock: 3}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("insert product: %v", err)
	}
	if err := db.Delete(&Product{}, "id = ?", "p2").Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := db.Model(&Product{}).Where("id = ?", "p2").Count(&cnt).Error; err != nil || cnt != 0 {
		t.Fatalf("soft-deleted product visible: cnt=%d err=%v", cnt, err)
	}
	if err := db.Unscoped().Model(&Product{}).Where("id = ?", "p2").Count(&cnt).Error; err != nil || cnt != 1 {
		t.Fatalf("soft-deleted row should remain: cnt=%d err=%v", cnt, err)
	}
}

func TestUser_JSONHidesPasswordHash(t *testing.T) {
	u := User{ID: "u1", Name: "Ann", Email: "a@b.c", PasswordHash: "secret-hash"}
	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "secret-hash") || strings.Contains(string(b), "password") {
		t.Fatalf("password hash leaked: %s", b)
	}
}

func TestUser_RoleNames(t *testing.T) {
	u := User{Roles: []Role{{Name: "admin"}, {Name: "user"}}}
	got := u.RoleNames()
	if len(got) != 2 || got[0] != "admin" || got[1] != "user" {
		t.Fatalf("RoleNames() = %v", got)
	}
	if n := (User{}).RoleNames(); n == nil || len(n) != 0 {
		t.Fatalf("RoleNames() on no roles should be empty non-nil, got %#v", n)
	}
	if (Identity{User: User{ID: "x"}}).UserID() != "x" {
		t.Fatalf("Identity.UserID mismatch")
	}
}
