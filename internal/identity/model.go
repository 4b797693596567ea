// Package identity owns user records, the email lookup index, and the
// approximate user count in the key-value backend. No other package writes
// these keys.
package identity

import (
	"time"
)

// Role is a user's permission tier. The numeric access level is always
// derived from the role via AccessLevel -- no code path sets one without
// the other.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleEditor      Role = "editor"
	RoleContributor Role = "contributor"
	RoleViewer      Role = "viewer"
)

// accessLevels is the fixed role to access-level table.
var accessLevels = map[Role]int{
	RoleAdmin:       10,
	RoleEditor:      5,
	RoleContributor: 3,
	RoleViewer:      1,
}

// AccessLevel returns the numeric rank for the role, or 0 for an unknown role.
func (r Role) AccessLevel() int {
	return accessLevels[r]
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := accessLevels[r]
	return ok
}

// User is a registered account. The ID is the username: URL-safe,
// immutable, and used as the content-ownership key by the wiki layer.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // Never expose in JSON responses.
	DisplayName    string    `json:"display_name"`
	Role           Role      `json:"role"`
	AccessLevel    int       `json:"access_level"`
	AvatarRef      string    `json:"avatar_ref,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	EmailConfirmed bool      `json:"email_confirmed"`
}

// SetRole changes the role and the derived access level together,
// preserving the invariant that they never diverge.
func (u *User) SetRole(role Role) {
	u.Role = role
	u.AccessLevel = role.AccessLevel()
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
