// Package auth issues and validates the session tokens handed out at login.
package auth

import (
	"time"

	"github.com/blindvote/blindvote/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the voter identity and the admin
// flag used by the admin-only endpoints.
type Claims struct {
	jwt.RegisteredClaims
	VoterID int64
	IsAdmin bool
}

// GenerateToken creates a signed HS256 token for the voter.
func GenerateToken(voterID int64, isAdmin bool, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		VoterID: voterID,
		IsAdmin: isAdmin,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates the token string and returns its claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
