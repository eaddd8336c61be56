package dto

import (
	"time"

	"clinicore/internal/core/id"
	"clinicore/internal/domain/auth"
)

// LoginRequest for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts the request to domain credentials.
func (r LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{Email: r.Email, Password: r.Password}
}

// RegisterRequest for POST /auth/register (admin only).
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Name        string `json:"name"`
	Role        string `json:"role" binding:"required"`
	FranchiseID string `json:"franchiseId"`
}

// ToUser converts the request to a domain user.
func (r RegisterRequest) ToUser() (*auth.User, error) {
	user := auth.NewUser(r.Email, "", r.Role)
	user.Name = r.Name
	if r.FranchiseID != "" {
		franchiseID, err := id.Parse(r.FranchiseID)
		if err != nil {
			return nil, err
		}
		user.FranchiseID = franchiseID
	}
	return user, nil
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Role        string     `json:"role"`
	FranchiseID string     `json:"franchiseId,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FromUser creates UserResponse from a domain user.
func FromUser(u *auth.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if !id.IsNil(u.FranchiseID) {
		resp.FranchiseID = u.FranchiseID.String()
	}
	return resp
}

// LoginResponse for successful login.
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}
