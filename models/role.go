package models

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleOffice   Role = "Office"
	RoleTerminal Role = "Terminal"
)

// AllRoles is the full role set, in display order.
var AllRoles = []Role{RoleAdmin, RoleOffice, RoleTerminal}

var ErrInvalidRole = errors.New("invalid role")

// ParseRole accepts role names case-insensitively.
// "pdv" is the legacy name terminals were issued tokens with.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "office":
		return RoleOffice, nil
	case "terminal", "pdv":
		return RoleTerminal, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOffice, RoleTerminal:
		return true
	}
	return false
}

// RoleSet is an immutable-by-convention set of roles.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Slice returns the roles in AllRoles order.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range AllRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}
