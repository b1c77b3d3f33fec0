package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// Claims is the subset of token claims the server cares about.
type Claims struct {
	UserID   uint64
	Username string
}

// Init stores the signing secret for the process lifetime.
func Init(secret string) {
	jwtSecret = []byte(secret)
}

func GenerateToken(userID uint64, username string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(time.Hour * 168).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userIDFloat, ok := mapClaims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid user ID in token claims")
	}

	username, _ := mapClaims["username"].(string)

	return &Claims{
		UserID:   uint64(userIDFloat),
		Username: username,
	}, nil
}
