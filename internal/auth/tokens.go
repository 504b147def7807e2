package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abushop/shopfront/internal/entities"
)

// ErrInvalidToken is returned when a bearer token fails validation.
var ErrInvalidToken = errors.New("invalid token")

// IssueAccessToken creates a signed bearer token for the user. The token is
// self-contained: subject is the credential identifier, expiry is
// config.TokenExpiry (2h by default) after issuance. Nothing is stored
// server-side, so the token cannot be revoked before it expires.
func (s *Service) IssueAccessToken(user *entities.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
	})

	return token.SignedString(s.jwtSecret)
}

// ParseAccessToken validates a bearer token's signature and expiry and
// returns its subject identifier.
func (s *Service) ParseAccessToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", ErrInvalidToken
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
