package model

import "time"

type User struct {
	ID                    string
	Email                 string
	PasswordHash          string
	Role                  string
	Name                  string
	LastName              string
	Position              string
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Profile is the public projection of a user. It is the only user shape
// that crosses the HTTP boundary; password hash and refresh token stay out.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Position string `json:"position"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:       u.ID,
		Email:    u.Email,
		Role:     u.Role,
		Name:     u.Name,
		LastName: u.LastName,
		Position: u.Position,
	}
}

// Session is the result of a successful login or refresh: a fresh access
// token plus the rotated refresh token that backs the cookie.
type Session struct {
	AccessToken   string
	RefreshToken  string
	RefreshExpiry time.Time
	User          Profile
}
