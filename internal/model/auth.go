package model

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleClinician = "CLINICIAN"
)

// TokenClaims are the claims of the bearer tokens issued by the identity
// platform. The subject is the account id.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CalendarTokenRequest carries the access token returned by the calendar
// provider's browser redirect.
type CalendarTokenRequest struct {
	AccessToken  string `json:"access_token" binding:"required"`
	ExpiresIn    int64  `json:"expires_in" binding:"required,min=1"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
