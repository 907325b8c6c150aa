// Package services – AuthService
//
// AuthService owns credentials and bearer tokens: login, token resolution for
// the auth middleware, logout, refresh, registration and password changes.
//
// Tokens are signed JWTs whose jti is recorded as an access_tokens row. A
// token is only accepted while its signature, issuer and expiry verify AND its
// row still exists, so deleting the row revokes it immediately.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-product-api/internal/domain"
	"github.com/tbourn/go-product-api/internal/failure"
	"github.com/tbourn/go-product-api/internal/repo"
	"github.com/tbourn/go-product-api/internal/security"
	"github.com/tbourn/go-product-api/internal/validation"
)

// TokenType is the scheme clients must use in the Authorization header.
const TokenType = "Bearer"

// tokenName labels the access_tokens rows created by this service.
const tokenName = "api-token"

// UserRepo is the persistence contract AuthService needs for users.
type UserRepo interface {
	CreateUser(ctx context.Context, db *gorm.DB, name, email, hash string) (*domain.User, error)
	GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)
	EmailTaken(ctx context.Context, db *gorm.DB, email string) (bool, error)
	UpdatePasswordHash(ctx context.Context, db *gorm.DB, userID, hash string) error
	AssignRole(ctx context.Context, db *gorm.DB, userID, role string) error
}

// TokenRepo records and revokes issued access tokens.
type TokenRepo interface {
	CreateToken(ctx context.Context, db *gorm.DB, tok *domain.AccessToken) error
	GetActiveToken(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.AccessToken, error)
	TouchToken(ctx context.Context, db *gorm.DB, id string, now time.Time) error
	DeleteToken(ctx context.Context, db *gorm.DB, id string) error
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(userID string) (string, security.Claims, error)
	Parse(raw string) (security.Claims, error)
}

// IssuedToken is the bearer token handed to a client.
type IssuedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// RegisterInput carries an already validated registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService implements authentication and account operations.
type AuthService struct {
	DB     *gorm.DB
	Users  UserRepo
	Tokens TokenRepo
	Issuer TokenIssuer
	Hasher security.PasswordHasher

	// DefaultRole is assigned to every newly registered user.
	DefaultRole string
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewAuthService wires an AuthService with the GORM-backed repositories.
func NewAuthService(db *gorm.DB, issuer TokenIssuer, hasher security.PasswordHasher) *AuthService {
	return &AuthService{
		DB:          db,
		Users:       repo.Users{},
		Tokens:      repo.Tokens{},
		Issuer:      issuer,
		Hasher:      hasher,
		DefaultRole: "user",
	}
}

// NormalizeEmail trims and lowercases an email address. Emails are stored and
// compared in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies credentials and issues a token. An unknown email and a wrong
// password fail identically, and neither records a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, IssuedToken, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Login")
	defer span.End()

	u, err := s.Users.GetUserByEmail(ctx, s.DB, NormalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		authEvent("login_failed")
		return nil, IssuedToken{}, failure.Unauthenticated(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, IssuedToken{}, failure.Unhandled(pkgerrors.Wrap(err, "load user"))
	}
	if err := s.Hasher.Compare(u.PasswordHash, password); err != nil {
		authEvent("login_failed")
		return nil, IssuedToken{}, failure.Unauthenticated(MsgInvalidCredentials)
	}

	tok, err := s.issue(ctx, s.DB, u.ID)
	if err != nil {
		return nil, IssuedToken{}, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	authEvent("login")
	return u, tok, nil
}

// Authenticate resolves a raw bearer token to the caller's Identity. Every
// rejection is the same authentication failure; only storage errors are
// reported as unhandled.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (domain.Identity, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Authenticate")
	defer span.End()

	claims, err := s.Issuer.Parse(raw)
	if err != nil {
		return domain.Identity{}, failure.Unauthenticated("")
	}
	now := s.now()
	tok, err := s.Tokens.GetActiveToken(ctx, s.DB, claims.TokenID, now)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Identity{}, failure.Unauthenticated("")
	}
	if err != nil {
		return domain.Identity{}, failure.Unhandled(pkgerrors.Wrap(err, "load token"))
	}
	if tok.UserID != claims.UserID {
		return domain.Identity{}, failure.Unauthenticated("")
	}

	u, err := s.Users.GetUserByID(ctx, s.DB, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Identity{}, failure.Unauthenticated("")
	}
	if err != nil {
		return domain.Identity{}, failure.Unhandled(pkgerrors.Wrap(err, "load user"))
	}

	if err := s.Tokens.TouchToken(ctx, s.DB, tok.ID, now); err != nil {
		log.Warn().Err(err).Str("token_id", tok.ID).Msg("touch token failed")
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return domain.Identity{User: *u, TokenID: tok.ID}, nil
}

// Logout revokes the token the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, id domain.Identity) error {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Logout",
		trace.WithAttributes(attribute.String("user.id", id.UserID())))
	defer span.End()

	if err := s.Tokens.DeleteToken(ctx, s.DB, id.TokenID); err != nil {
		return failure.Unhandled(pkgerrors.Wrap(err, "revoke token"))
	}
	authEvent("logout")
	return nil
}

// Refresh revokes the current token and issues a replacement in one
// transaction.
func (s *AuthService) Refresh(ctx context.Context, id domain.Identity) (IssuedToken, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Refresh",
		trace.WithAttributes(attribute.String("user.id", id.UserID())))
	defer span.End()

	var out IssuedToken
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Tokens.DeleteToken(ctx, tx, id.TokenID); err != nil {
			return failure.Unhandled(pkgerrors.Wrap(err, "revoke token"))
		}
		tok, err := s.issue(ctx, tx, id.UserID())
		if err != nil {
			return err
		}
		out = tok
		return nil
	})
	if err != nil {
		return IssuedToken{}, failure.From(err)
	}
	authEvent("refresh")
	return out, nil
}

// Register creates a user with the default role. The user row and the role
// assignment commit together. A duplicate email that slipped past request
// validation is still reported as a validation failure on "email".
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Register")
	defer span.End()

	hash, err := s.hash("password", in.Password)
	if err != nil {
		return nil, err
	}

	var userID string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.Users.CreateUser(ctx, tx, strings.TrimSpace(in.Name), NormalizeEmail(in.Email), hash)
		if errors.Is(err, repo.ErrDuplicate) {
			return failure.FieldError("email", MsgEmailTaken)
		}
		if err != nil {
			return failure.Unhandled(pkgerrors.Wrap(err, "create user"))
		}
		if s.DefaultRole != "" {
			if err := s.Users.AssignRole(ctx, tx, u.ID, s.DefaultRole); err != nil {
				return failure.Unhandled(pkgerrors.Wrapf(err, "assign role %q", s.DefaultRole))
			}
		}
		userID = u.ID
		return nil
	})
	if err != nil {
		return nil, failure.From(err)
	}

	u, err := s.Users.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		return nil, failure.Unhandled(pkgerrors.Wrap(err, "reload user"))
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	authEvent("register")
	return u, nil
}

// ChangePassword replaces the caller's password after re-verifying the
// current one. Request validation normally catches a wrong current password
// first; the check is repeated here so the service is safe on its own.
func (s *AuthService) ChangePassword(ctx context.Context, id domain.Identity, current, next string) error {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "ChangePassword",
		trace.WithAttributes(attribute.String("user.id", id.UserID())))
	defer span.End()

	ok, err := s.PasswordMatches(ctx, id.UserID(), current)
	if err != nil {
		return err
	}
	if !ok {
		return failure.FieldError("current_password", validation.MsgCurrentPasswordIncorrect)
	}
	hash, err := s.hash("new_password", next)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePasswordHash(ctx, s.DB, id.UserID(), hash); err != nil {
		return failure.Unhandled(pkgerrors.Wrap(err, "store password"))
	}
	authEvent("password_changed")
	return nil
}

// hash reports a password bcrypt cannot accept as a validation failure on
// field rather than a server error.
func (s *AuthService) hash(field, password string) (string, error) {
	h, err := s.Hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", failure.FieldError(field, passwordTooLong(field))
	}
	if err != nil {
		return "", failure.Unhandled(pkgerrors.Wrap(err, "hash password"))
	}
	return h, nil
}

// EmailTaken reports whether a user already registered email.
func (s *AuthService) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.Users.EmailTaken(ctx, s.DB, NormalizeEmail(email))
}

// PasswordMatches reports whether password is the stored password of userID.
// The hash is read fresh so a password changed on another device is honoured.
func (s *AuthService) PasswordMatches(ctx context.Context, userID, password string) (bool, error) {
	u, err := s.Users.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		return false, failure.Unhandled(pkgerrors.Wrap(err, "load user"))
	}
	return s.Hasher.Compare(u.PasswordHash, password) == nil, nil
}

// issue signs a token for userID and records it through db.
func (s *AuthService) issue(ctx context.Context, db *gorm.DB, userID string) (IssuedToken, error) {
	raw, claims, err := s.Issuer.Issue(userID)
	if err != nil {
		return IssuedToken{}, failure.Unhandled(pkgerrors.Wrap(err, "sign token"))
	}
	rec := &domain.AccessToken{
		ID:        claims.TokenID,
		UserID:    userID,
		Name:      tokenName,
		ExpiresAt: claims.ExpiresAt,
		CreatedAt: claims.IssuedAt,
	}
	if err := s.Tokens.CreateToken(ctx, db, rec); err != nil {
		return IssuedToken{}, failure.Unhandled(pkgerrors.Wrap(err, "record token"))
	}
	return IssuedToken{AccessToken: raw, TokenType: TokenType, ExpiresAt: claims.ExpiresAt}, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
