package model

import "time"

// Role is the authorization class of a user.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleNGOAdmin  Role = "ngo_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleVolunteer || r == RoleNGOAdmin
}

// User represents an application user record as stored in the `users`
// table.  Handlers never return PasswordHash.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Name         – display name.
//	Role         – volunteer or ngo_admin.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Name         string    // users.name
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
