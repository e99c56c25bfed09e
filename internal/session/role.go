package session

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is a display hint for which affordances to show. The backend is the only authority on privileges.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a claim value to a Role. Anything unknown is a plain user.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleGuest:
		return RoleGuest
	default:
		return RoleUser
	}
}

// RoleFromToken reads the role claim of a server-issued token without verifying it.
// A token that cannot be parsed yields RoleUser.
func RoleFromToken(token string) Role {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return RoleUser
	}
	role, _ := claims["role"].(string)
	return ParseRole(role)
}
