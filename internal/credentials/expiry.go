package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry lee el claim exp de un JWT sin verificar la firma. Devuelve
// false para tokens opacos o sin exp.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired indica si el token tiene exp y ya paso.
func Expired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !now.Before(exp)
}
