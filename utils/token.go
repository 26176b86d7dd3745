package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID       int      `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.StandardClaims
}

func (c *JwtCustomClaim) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func getJwtSecret() []byte {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return []byte("SalesBackend-Secret")
	}
	return []byte(secret)
}

// TOKEN_HOUR_LIFESPAN, default 1 hour
func tokenLifespan() time.Duration {
	hours, err := strconv.Atoi(strings.TrimSpace(os.Getenv("TOKEN_HOUR_LIFESPAN")))
	if err != nil || hours <= 0 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

func JwtGenerate(userID int, username string, roles []string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:       userID,
		Username: username,
		Roles:    roles,
		StandardClaims: jwt.StandardClaims{
			Subject:   username,
			ExpiresAt: now.Add(tokenLifespan()).Unix(),
			IssuedAt:  now.Unix(),
		},
	})

	token, err := t.SignedString(getJwtSecret())
	if err != nil {
		return "", err
	}

	return token, nil
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return getJwtSecret(), nil
	})
}
