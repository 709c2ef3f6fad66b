package app

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"cipherquest-service/internal/domain"
)

// IssueToken signs a session token carrying the team ID.
func IssueToken(teamID, secret string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"team_id": teamID,
		"exp":     now.Add(sessionTokenExpires).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a session token and extracts the team ID.
func ParseToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidToken
	}
	teamID, ok := claims["team_id"].(string)
	if !ok || teamID == "" {
		return "", domain.ErrInvalidToken
	}
	return teamID, nil
}
