package domain

import (
	"slices"
	"time"
)

const (
	PlatformRoleAdmin = "ADMIN"
	PlatformRoleUser  = "USER"
)

type User struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserSummary is the trimmed user shape embedded in participant and manager views.
type UserSummary struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
	}
}

// Principal is the authenticated caller as supplied by the identity provider.
type Principal struct {
	UserID uint
	Email  string
	Roles  []string
}

func (p Principal) IsAdmin() bool {
	return slices.Contains(p.Roles, PlatformRoleAdmin)
}
