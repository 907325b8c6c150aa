// Auth HTTP handlers.
//
// This file exposes the account and token endpoints:
//   - POST /login            (public)
//   - POST /register         (public)
//   - POST /logout           (token)
//   - GET  /user             (token)
//   - POST /refresh          (token)
//   - POST /change-password  (token)
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-api/internal/domain"
	"github.com/tbourn/go-product-api/internal/services"
	"github.com/tbourn/go-product-api/internal/validation"
)

// Success messages of the auth endpoints.
const (
	MsgLoginSuccessful     = "Login successful"
	MsgLogoutSuccessful    = "Logout successful"
	MsgUserRetrieved       = "User information retrieved successfully"
	MsgRegistrationSuccess = "Registration successful"
	MsgTokenRefreshed      = "Token refreshed successfully"
	MsgPasswordChanged     = "Password changed successfully"
)

//
// DTOs
//

// LoginRequest is the JSON payload of POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"ann@example.com"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

// RegisterRequest is the JSON payload of POST /register.
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,filled,max=255" example:"Ann"`
	Email                string `json:"email" validate:"required,email,max=255" example:"ann@example.com"`
	Password             string `json:"password" validate:"required,min=6,maxbytes=72,confirmed" example:"secret1"`
	PasswordConfirmation string `json:"password_confirmation" example:"secret1"`
}

// ChangePasswordRequest is the JSON payload of POST /change-password.
type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required" example:"secret1"`
	NewPassword             string `json:"new_password" validate:"required,min=6,maxbytes=72,confirmed" example:"secret2"`
	NewPasswordConfirmation string `json:"new_password_confirmation" example:"secret2"`
}

// UserResource is the public representation of a user. The password hash is
// never serialized.
type UserResource struct {
	ID        string    `json:"id" example:"5d1f0b9e-3c0a-4a4e-9c59-0c2f3b0f7a11"`
	Name      string    `json:"name" example:"Ann"`
	Email     string    `json:"email" example:"ann@example.com"`
	Roles     []string  `json:"roles" example:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginData is the data member of a successful login.
type LoginData struct {
	AccessToken string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIs..."`
	TokenType   string       `json:"token_type" example:"Bearer"`
	User        UserResource `json:"user"`
}

// NewUserResource serializes u.
func NewUserResource(u domain.User) UserResource {
	return UserResource{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     u.RoleNames(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

//
// Handlers
//

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and issues a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  envelope.Envelope{data=handlers.LoginData}
// @Failure     401   {object}  envelope.Envelope  "Invalid email or password"
// @Failure     422   {object}  envelope.Envelope{data=envelope.ValidationData}
// @Failure     500   {object}  envelope.Envelope
// @Router      /login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := h.v.Bind(c, &req); err != nil {
		abort(c, err)
		return
	}

	u, tok, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abort(c, err)
		return
	}
	ok(c, http.StatusOK, LoginData{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		User:        NewUserResource(*u),
	}, MsgLoginSuccessful)
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Revokes the token used for this request.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.Envelope
// @Failure     401  {object}  envelope.Envelope
// @Router      /logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), id); err != nil {
		abort(c, err)
		return
	}
	ok(c, http.StatusOK, nil, MsgLogoutSuccessful)
}

// User godoc
// @ID          currentUser
// @Summary     Current user
// @Description Returns the authenticated user with role names.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.Envelope{data=handlers.UserResource}
// @Failure     401  {object}  envelope.Envelope
// @Router      /user [get]
func (h *Handlers) User(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, NewUserResource(id.User), MsgUserRetrieved)
}

// Register godoc
// @ID          register
// @Summary     Register
// @Description Creates an account with the "user" role.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "New account"
// @Success     201   {object}  envelope.Envelope{data=handlers.UserResource}
// @Failure     422   {object}  envelope.Envelope{data=envelope.ValidationData}
// @Failure     500   {object}  envelope.Envelope
// @Router      /register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	err := h.v.Bind(c, &req,
		validation.Unique("email", func(ctx context.Context) (bool, error) {
			return h.auth.EmailTaken(ctx, req.Email)
		}),
	)
	if err != nil {
		abort(c, err)
		return
	}

	u, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		abort(c, err)
		return
	}
	created(c, NewUserResource(*u), MsgRegistrationSuccess)
}

// Refresh godoc
// @ID          refreshToken
// @Summary     Refresh token
// @Description Revokes the current token and issues a new one.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  envelope.Envelope{data=services.IssuedToken}
// @Failure     401  {object}  envelope.Envelope
// @Router      /refresh [post]
func (h *Handlers) Refresh(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}
	tok, err := h.auth.Refresh(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	ok(c, http.StatusOK, tok, MsgTokenRefreshed)
}

// ChangePassword godoc
// @ID          changePassword
// @Summary     Change password
// @Description Replaces the caller's password after verifying the current one.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.ChangePasswordRequest  true  "Passwords"
// @Success     200   {object}  envelope.Envelope
// @Failure     401   {object}  envelope.Envelope
// @Failure     422   {object}  envelope.Envelope{data=envelope.ValidationData}
// @Router      /change-password [post]
func (h *Handlers) ChangePassword(c *gin.Context) {
	id, found := identity(c)
	if !found {
		return
	}

	var req ChangePasswordRequest
	err := h.v.Bind(c, &req,
		validation.CurrentPassword("current_password", func(ctx context.Context) (bool, error) {
			return h.auth.PasswordMatches(ctx, id.UserID(), req.CurrentPassword)
		}),
	)
	if err != nil {
		abort(c, err)
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		abort(c, err)
		return
	}
	ok(c, http.StatusOK, nil, MsgPasswordChanged)
}
