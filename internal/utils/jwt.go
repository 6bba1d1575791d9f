// Package utils provides helpers for access tokens and client secrets.
package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAnalyst is the role carried by tokens issued to API clients.
const RoleAnalyst = "ANALYST"

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs an HS256 JWT with sub, role, exp and iat claims.
func NewAccessToken(secret, subject, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
