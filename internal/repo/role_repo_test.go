package repo

import (
	"context"
	"reflect"
	"testing"

	"github.com/tbourn/go-product-api/internal/domain"
)

func TestSeedRoles_IdempotentAndSyncsPermissions(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	defs := []RoleDefinition{
		{Name: "admin", Permissions: []string{"view products", "create products", "edit products"}},
		{Name: "viewer", Permissions: []string{"view products"}},
	}
	if err := SeedRoles(ctx, db, defs); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}
	if err := SeedRoles(ctx, db, defs); err != nil {
		t.Fatalf("SeedRoles second run: %v", err)
	}

	var roles, perms int64
	db.Model(&domain.Role{}).Count(&roles)
	db.Model(&domain.Permission{}).Count(&perms)
	if roles != 2 || perms != 3 {
		t.Fatalf("expected 2 roles / 3 permissions, got %d / %d", roles, perms)
	}

	// Shrinking a role's permission set removes the dropped grants.
	defs[0].Permissions = []string{"view products"}
	if err := SeedRoles(ctx, db, defs); err != nil {
		t.Fatalf("SeedRoles resync: %v", err)
	}
	u, err := CreateUser(ctx, db, "Ann", "ann@example.com", "h")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := AssignRole(ctx, db, u.ID, "admin"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	got, err := UserPermissions(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("UserPermissions: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"view products"}) {
		t.Fatalf("expected [view products], got %v", got)
	}
}

func TestUserPermissions_UnionAcrossRolesAndNone(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	defs := []RoleDefinition{
		{Name: "editor", Permissions: []string{"view products", "edit products"}},
		{Name: "viewer", Permissions: []string{"view products"}},
		{Name: "user"},
	}
	if err := SeedRoles(ctx, db, defs); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}

	u, _ := CreateUser(ctx, db, "Ann", "ann@example.com", "h")
	_ = AssignRole(ctx, db, u.ID, "editor")
	_ = AssignRole(ctx, db, u.ID, "viewer")

	got, err := UserPermissions(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("UserPermissions: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"edit products", "view products"}) {
		t.Fatalf("unexpected permissions: %v", got)
	}

	plain, _ := CreateUser(ctx, db, "Bob", "bob@example.com", "h")
	_ = AssignRole(ctx, db, plain.ID, "user")
	none, err := UserPermissions(ctx, db, plain.ID)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no permissions, got %v (err=%v)", none, err)
	}
}

func TestDefaultRoles_SeedAndGrant(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	if err := SeedRoles(ctx, db, DefaultRoles()); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}

	u, err := CreateUser(ctx, db, "Ed", "ed@example.com", "h")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := AssignRole(ctx, db, u.ID, "user"); err != nil {
		t.Fatalf("AssignRole user: %v", err)
	}
	if perms, _ := UserPermissions(ctx, db, u.ID); len(perms) != 0 {
		t.Fatalf("role user should grant nothing, got %v", perms)
	}

	if err := AssignRole(ctx, db, u.ID, "editor"); err != nil {
		t.Fatalf("AssignRole editor: %v", err)
	}
	perms, err := UserPermissions(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("UserPermissions: %v", err)
	}
	if want := []string{"edit products", "view products"}; !reflect.DeepEqual(perms, want) {
		t.Fatalf("editor permissions = %v; want %v", perms, want)
	}
}
