package auth

import "time"

// Role represents an identity's privilege level
type Role string

const (
	RoleUser  Role = "user"  // Standard account
	RoleAdmin Role = "admin" // Privileged account
)

// Roles lists every valid role
var Roles = []Role{RoleUser, RoleAdmin}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// OrDefault returns RoleUser when r is empty
func (r Role) OrDefault() Role {
	if r == "" {
		return RoleUser
	}
	return r
}

// Identity is a registered account
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialized
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicIdentity is the client-facing view of an identity
type PublicIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Public returns the client-facing view of the identity
func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:    i.ID,
		Email: i.Email,
		Role:  i.Role,
	}
}

// AuthContext holds the authenticated caller for one request
type AuthContext struct {
	Claims   *Claims
	Identity *Identity
	Token    string
}

// UserID returns the authenticated identity's id
func (ac *AuthContext) UserID() string {
	if ac == nil || ac.Claims == nil {
		return ""
	}
	return ac.Claims.UserID
}

// HasRole checks the role embedded in the session token.
// The token's role is fixed at issuance, so a role change on the identity
// takes effect only after the caller logs in again.
func (ac *AuthContext) HasRole(role Role) bool {
	if ac == nil || ac.Claims == nil {
		return false
	}
	return ac.Claims.Role == role
}
