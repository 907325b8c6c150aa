package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-product-api/internal/authz"
	"github.com/tbourn/go-product-api/internal/domain"
)

// RoleDefinition names a role and the permissions it must hold.
type RoleDefinition struct {
	Name        string
	Permissions []string
}

// DefaultRoles is the role set seeded at startup. "user" is assigned on
// registration and grants nothing; access to products comes from the others.
func DefaultRoles() []RoleDefinition {
	return []RoleDefinition{
		{Name: "admin", Permissions: []string{
			authz.PermViewProducts, authz.PermCreateProducts, authz.PermEditProducts, authz.PermDeleteProducts,
		}},
		{Name: "editor", Permissions: []string{authz.PermViewProducts, authz.PermEditProducts}},
		{Name: "viewer", Permissions: []string{authz.PermViewProducts}},
		{Name: "user"},
	}
}

// GetRoleByName fetches a role by its unique name.
func GetRoleByName(ctx context.Context, db *gorm.DB, name string) (*domain.Role, error) {
	var r domain.Role
	if err := db.WithContext(ctx).Where("name = ?", name).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// SeedRoles makes the stored roles and permissions match defs. Missing rows are
// created and each role's permission set is replaced, so running it again is
// harmless. Roles and permissions not named in defs are left alone.
func SeedRoles(ctx context.Context, db *gorm.DB, defs []RoleDefinition) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms := map[string]*domain.Permission{}
		for _, d := range defs {
			for _, name := range d.Permissions {
				if _, ok := perms[name]; ok {
					continue
				}
				p := domain.Permission{}
				if err := tx.Where(domain.Permission{Name: name}).FirstOrCreate(&p).Error; err != nil {
					return err
				}
				perms[name] = &p
			}
		}

		for _, d := range defs {
			r := domain.Role{}
			if err := tx.Where(domain.Role{Name: d.Name}).FirstOrCreate(&r).Error; err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM role_permissions WHERE role_id = ?", r.ID).Error; err != nil {
				return err
			}
			for _, name := range d.Permissions {
				row := map[string]any{"role_id": r.ID, "permission_id": perms[name].ID}
				if err := tx.Table("role_permissions").Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// UserPermissions returns the distinct permission names granted to a user
// through any of its roles.
func UserPermissions(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Table("permissions").
		Distinct("permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Order("permissions.name").
		Pluck("permissions.name", &names).Error
	return names, err
}
