// Package domain holds identity primitives shared by every bounded context.
package domain

import (
	"fmt"
	"strings"
)

// Role is the role under which an actor makes a change. Roles are resolved by
// the upstream auth layer; this service only consumes them.
type Role string

const (
	RoleSubject  Role = "subject"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleSubject, RoleReviewer, RoleAdmin:
		return true
	}
	return false
}

// Elevated reports whether the role bypasses subject enrollment checks.
func (r Role) Elevated() bool {
	return r == RoleReviewer || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// Actor is the resolved identity attached to a request.
type Actor struct {
	ID        string
	Role      Role
	SessionID string
}

// IsZero reports whether no actor has been resolved.
func (a Actor) IsZero() bool {
	return a.ID == "" && a.Role == ""
}
