// Package identity resolves bearer tokens to staff actors and enforces
// role requirements on routes. Token issuance happens out of band; this
// package only verifies presented credentials.
package identity

import "errors"

// Role is a coarse permission level attached to an actor.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   int64
	Name string
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

var (
	ErrTokenInvalid = errors.New("identity: token invalid")
	ErrTokenRevoked = errors.New("identity: token revoked")
)
