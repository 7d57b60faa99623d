// Package auth mints and validates device tokens: short-lived HS256 JWTs
// binding a (user, device) pair for calls against the remote store.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mlevitan/clinisync/internal/common"
)

// Claims carries the authorized user and device alongside the registered
// claim set.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	DeviceID string `json:"did"`
}

// MintDeviceToken signs a token authorizing deviceID to sync on behalf of
// userID for the given validity window.
func MintDeviceToken(userID, deviceID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:   userID,
		DeviceID: deviceID,
	})

	signed, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseDeviceToken validates the signature and expiry and returns the
// (user, device) pair. Any failure maps to ErrInvalidToken; callers get no
// hint whether the signature, the expiry or the shape was wrong.
func ParseDeviceToken(tokenString string, secretKey []byte) (userID, deviceID string, err error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", "", common.ErrInvalidToken
	}

	if claims.UserID == "" || claims.DeviceID == "" {
		return "", "", common.ErrInvalidToken
	}
	return claims.UserID, claims.DeviceID, nil
}
