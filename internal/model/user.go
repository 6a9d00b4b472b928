package model

import "time"

// Role is a closed set; authorization decisions switch on membership,
// never on free-form strings coming from a token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the request-scoped identity resolved from a verified access
// token plus one user lookup. It lives in the request context only.
type Principal struct {
	ID       int64
	Username string
	Name     string
	Roles    []Role
}

// HasRole is nil-safe: an anonymous request has no roles.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
