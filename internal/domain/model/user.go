package model

import (
	"strings"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	HashedPassword    string    `json:"-"` // Not exposed
	Role              string    `json:"role"`
	IsAccountVerified bool      `json:"is_account_verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PublicProfile is what other users see of an account. The email stays private.
type PublicProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) PublicProfile() *PublicProfile {
	return &PublicProfile{ID: u.ID, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

// UserStats counts a user's live problems and the solutions the viewer may see.
type UserStats struct {
	UserID                  string `json:"user_id"`
	ProblemsCreatedCount    int    `json:"problems_created_count"`
	SolutionsSubmittedCount int    `json:"solutions_submitted_count"`
}

// Identity is the authenticated requester. A nil *Identity means anonymous.
type Identity struct {
	ID         string
	Role       string
	IsVerified bool
}

func (i *Identity) IsAdmin() bool {
	return i != nil && strings.EqualFold(i.Role, RoleAdmin)
}

// Owns compares ids from different layers in a normalized form.
func (i *Identity) Owns(ownerID string) bool {
	if i == nil {
		return false
	}
	return SameID(i.ID, ownerID)
}

// SameID reports whether two ids refer to the same record.
func SameID(a, b string) bool {
	a, b = NormalizeID(a), NormalizeID(b)
	return a != "" && a == b
}

func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IdentityOf builds the requester identity for a stored user.
func IdentityOf(u *User) *Identity {
	return &Identity{ID: u.ID, Role: u.Role, IsVerified: u.IsAccountVerified}
}
