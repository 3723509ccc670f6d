package auth

import "github.com/golang-jwt/jwt/v5"

// Authenticator issues and verifies the access tokens the account service hands out.
type Authenticator interface {
	GenerateToken(userID int64) (string, error)
	ValidateToken(token string) (*jwt.Token, error)
}
