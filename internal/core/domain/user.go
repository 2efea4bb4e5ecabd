package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a platform account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Avatar       string    `json:"avatar"`
	PasswordHash string    `json:"-"` // Never expose
	IsActive     bool      `json:"is_active"`
	JoinedAt     time.Time `json:"joined_at"`
}

// PublicUser is the projection returned by recipient lookups.
type PublicUser struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
	IsActive    bool      `json:"is_active"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		IsActive:    u.IsActive,
		JoinedAt:    u.JoinedAt,
	}
}
