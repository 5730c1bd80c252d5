package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var (
	TokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration
)

func InitJWT(key []byte, ttl time.Duration) {
	TokenAuth = jwtauth.New("HS256", key, nil)
	tokenTTL = ttl
}

// GenerateToken signs the identity claims. The verified flag is a snapshot taken at
// login; an admin verification takes effect on the user's next token.
func GenerateToken(userID, role string, verified bool) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID,
		"role":     role,
		"verified": verified,
		"exp":      time.Now().Add(tokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// Helper functions to extract claims, can be used in middleware or services
func GetUserIDFromClaims(claims map[string]interface{}) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims map[string]interface{}) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}

// GetVerifiedFromClaims treats a missing claim as unverified.
func GetVerifiedFromClaims(claims map[string]interface{}) bool {
	verified, _ := claims["verified"].(bool)
	return verified
}
