package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleWebexAdmin     Role = "webex_admin"
	RoleWebexUser      Role = "webex_user"
	RolePurecloudAdmin Role = "purecloud_admin"
	RolePurecloudUser  Role = "purecloud_user"
)

var roles = []Role{RoleAdmin, RoleWebexAdmin, RoleWebexUser, RolePurecloudAdmin, RolePurecloudUser}

// Roles returns every accepted role tag.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ParseRole accepts the canonical tag or its hyphenated spelling ("webex-admin").
func ParseRole(raw string) (Role, bool) {
	norm := Role(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_"))
	for _, r := range roles {
		if r == norm {
			return r, true
		}
	}
	return "", false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser carries everything the store needs to insert a record. ID and timestamps are
// assigned by the store.
type NewUser struct {
	Name         string
	Email        string
	Role         Role
	PasswordHash string
}

// Patch is a validated partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string
	Email        *string
	Role         *Role
	PasswordHash *string
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && p.PasswordHash == nil
}

// Apply returns u with the patch fields copied over.
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	return u
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)
