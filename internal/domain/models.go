// Package domain defines the persistence models for users, roles,
// permissions, products and access tokens. These types are mapped with GORM
// and form the core data layer of the product API.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that can authenticate with a bearer token.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name.
//   - Email: login identifier; unique across all users.
//   - PasswordHash: bcrypt hash, never serialized.
//   - Roles: assigned roles (many-to-many through user_roles).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	Roles        []Role    `json:"-"          gorm:"many2many:user_roles;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// RoleNames returns the names of the loaded roles in assignment order.
func (u User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// Role groups permissions under a name such as "admin" or "viewer".
type Role struct {
	ID          uint         `json:"id"   gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"type:varchar(64);not null;uniqueIndex:ux_roles_name"`
	Permissions []Permission `json:"-"    gorm:"many2many:role_permissions;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt   time.Time    `json:"-"`
	UpdatedAt   time.Time    `json:"-"`
}

// TableName returns the database table name for Role.
func (Role) TableName() string { return "roles" }

// Permission is a named capability, e.g. "edit products".
type Permission struct {
	ID        uint      `json:"id"   gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(64);not null;uniqueIndex:ux_permissions_name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Permission.
func (Permission) TableName() string { return "permissions" }

// Product is the catalogue resource managed through the CRUD endpoints.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Name: required, at most 255 characters.
//   - Description: optional free text.
//   - Price: non-negative unit price.
//   - Stock: non-negative quantity on hand.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Product struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string         `json:"name"        gorm:"type:varchar(255);not null;index:idx_products_name"`
	Description string         `json:"description" gorm:"type:text;not null;default:''"`
	Price       float64        `json:"price"       gorm:"not null;default:0;check:price >= 0"`
	Stock       int            `json:"stock"       gorm:"not null;default:0;check:stock >= 0"`
	CreatedAt   time.Time      `json:"created_at"  gorm:"index:idx_products_created"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// AccessToken records an issued bearer token. The ID is the JWT "jti"; a token
// is only accepted while its row exists, so deleting the row revokes it.
type AccessToken struct {
	ID         string     `gorm:"type:char(36);primaryKey"`
	UserID     string     `gorm:"type:char(36);not null;index:idx_tokens_user"`
	Name       string     `gorm:"type:varchar(64);not null;default:'auth_token'"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	LastUsedAt *time.Time ``
	CreatedAt  time.Time  ``

	// User owns the token; tokens are removed with their user.
	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AccessToken.
func (AccessToken) TableName() string { return "access_tokens" }
