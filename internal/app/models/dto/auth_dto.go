package dto

import "github.com/yigit/madrasa/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"secretariaat@madrasa.nl"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn" example:"900"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty" example:"604800"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token       TokenResponse       `json:"token"`
	Account     *models.UserAccount `json:"account"`
	Participant models.Participant  `json:"participant"`
}

// MeResponse is the current caller
type MeResponse struct {
	Account     *models.UserAccount `json:"account"`
	Participant models.Participant  `json:"participant"`
	DisplayName string              `json:"displayName"`
}
