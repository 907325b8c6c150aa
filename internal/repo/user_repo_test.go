package repo

import (
	"context"
	"errors"
	"testing"
)

func TestCreateUser_SuccessAndDuplicateEmail(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "Ann", "ann@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Email != "ann@example.com" || u.PasswordHash != "hash" || u.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := CreateUser(ctx, db, "Other", "ann@example.com", "h2"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetUser_ByIDAndEmail_WithRoles(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	if err := SeedRoles(ctx, db, []RoleDefinition{{Name: "user"}, {Name: "editor", Permissions: []string{"view products"}}}); err != nil {
		t.Fatalf("SeedRoles: %v", err)
	}

	u, err := CreateUser(ctx, db, "Ann", "ann@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := AssignRole(ctx, db, u.ID, "editor"); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	// Idempotent
	if err := AssignRole(ctx, db, u.ID, "editor"); err != nil {
		t.Fatalf("AssignRole twice: %v", err)
	}

	byID, err := GetUserByID(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if names := byID.RoleNames(); len(names) != 1 || names[0] != "editor" {
		t.Fatalf("expected roles [editor], got %v", names)
	}

	byEmail, err := GetUserByEmail(ctx, db, "ann@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetUserByEmail: err=%v user=%+v", err, byEmail)
	}

	if _, err := GetUserByEmail(ctx, db, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUserByID(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRole_UnknownRole(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	u, err := CreateUser(ctx, db, "Ann", "ann@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := AssignRole(ctx, db, u.ID, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown role, got %v", err)
	}
}

func TestEmailTaken(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	if taken, err := EmailTaken(ctx, db, "ann@example.com"); err != nil || taken {
		t.Fatalf("expected free email, got taken=%v err=%v", taken, err)
	}
	if _, err := CreateUser(ctx, db, "Ann", "ann@example.com", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if taken, err := EmailTaken(ctx, db, "ann@example.com"); err != nil || !taken {
		t.Fatalf("expected taken email, got taken=%v err=%v", taken, err)
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	u, err := CreateUser(ctx, db, "Ann", "ann@example.com", "old")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := UpdatePasswordHash(ctx, db, u.ID, "new"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, err := GetUserByID(ctx, db, u.ID)
	if err != nil || got.PasswordHash != "new" {
		t.Fatalf("hash not updated: err=%v got=%+v", err, got)
	}
	if err := UpdatePasswordHash(ctx, db, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
