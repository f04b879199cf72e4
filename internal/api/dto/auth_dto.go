package dto

import (
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
)

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the signed token and the account profile.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserProfile `json:"user"`
}

// UserProfile is the account projection returned on login.
type UserProfile struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	MunicipalityID string  `json:"municipality_id"`
	DistrictID     *string `json:"district_id,omitempty"`
}

// NewLoginResponse maps the login result.
func NewLoginResponse(token string, expiresAt time.Time, user *domain.User) LoginResponse {
	return LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User: UserProfile{
			ID:             user.ID,
			Email:          user.Email,
			Name:           user.Name,
			Role:           string(user.Role),
			MunicipalityID: user.MunicipalityID,
			DistrictID:     user.DistrictID,
		},
	}
}
