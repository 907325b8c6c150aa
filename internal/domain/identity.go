package domain

// Identity is the authenticated caller of a request: the user the bearer
// token belongs to (with roles loaded) and the token's ID, so the current
// token can be revoked on logout or refresh.
type Identity struct {
	User    User
	TokenID string
}

// UserID returns the caller's user ID, or "" for a zero Identity.
func (i Identity) UserID() string { return i.User.ID }
