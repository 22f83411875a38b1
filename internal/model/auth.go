package model

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenRequest is the body of POST /token.
type TokenRequest struct {
	Role Role `json:"role" validate:"required,oneof=clinician developer researcher"`
}

// TokenResponse is the body returned by POST /token. AccessToken is empty
// when the backend omitted it.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Session is what a successful login leaves behind: the bearer token and the
// role it was issued for.
type Session struct {
	Token string `json:"token" mapstructure:"token"`
	Role  Role   `json:"role" mapstructure:"role"`
}

func (s *Session) HasToken() bool {
	return s != nil && s.Token != ""
}

// TokenClaims mirrors the claims the backend signs into access tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}
