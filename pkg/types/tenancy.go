package types

import (
	"strings"
	"time"
)

// Membership roles.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

var validRoles = map[string]bool{
	RoleOwner:  true,
	RoleAdmin:  true,
	RoleMember: true,
}

// NormalizeRole upper-cases role and reports whether it is recognized.
func NormalizeRole(role string) (string, bool) {
	r := strings.ToUpper(strings.TrimSpace(role))
	return r, validRoles[r]
}

// Organization is the top-level tenant. Its slug is globally unique.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// Project is a workspace owned by exactly one Organization. Project slugs are
// globally unique.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	OrganizationID string    `json:"organizationId"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Membership binds a user to an Organization with a role. Unique per
// (OrganizationID, UserID).
type Membership struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	UserID         string    `json:"userId"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasRole reports whether the membership's role is one of allowed.
func (m *Membership) HasRole(allowed ...string) bool {
	if m == nil {
		return false
	}
	for _, r := range allowed {
		if m.Role == r {
			return true
		}
	}
	return false
}
