package models

import "github.com/golang-jwt/jwt/v5"

// Role enumerates pre-verified caller roles.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleParent  Role = "PARENT"
)

// Actor is the authenticated caller injected into every workflow call.
// Verification happens upstream; the engine trusts this value.
type Actor struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// ActorClaims is the JWT payload carried by the host application's
// access tokens.
type ActorClaims struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor converts claims into the engine's actor capability.
func (c *ActorClaims) Actor() *Actor {
	if c == nil {
		return nil
	}
	return &Actor{ID: c.UserID, Role: c.Role, FullName: c.FullName, Email: c.Email}
}
