package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"travel-insight/access"
)

func GenerateJWT(secret, username, role, name string, expirationMinutes int) (string, error) {
	claims := jwt.MapClaims{
		"sub":  username,
		"role": strings.ToUpper(role),
		"name": name,
		"exp":  time.Now().Add(time.Duration(expirationMinutes) * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ExtractCaller validates the bearer token and rebuilds the caller context
// the role policy runs against.
func ExtractCaller(r *http.Request, secret string) (access.Caller, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return access.Caller{}, errors.New("no bearer token")
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return access.Caller{}, errors.New("invalid or expired JWT")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return access.Caller{}, errors.New("invalid JWT claims")
	}
	caller := access.Caller{}
	caller.ID, _ = claims["sub"].(string)
	if role, ok := claims["role"].(string); ok {
		caller.Role = strings.ToUpper(role)
	}
	caller.Name, _ = claims["name"].(string)
	if caller.ID == "" {
		return access.Caller{}, errors.New("JWT missing subject")
	}
	return caller, nil
}
