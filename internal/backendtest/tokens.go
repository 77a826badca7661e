package backendtest

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// tokenIssuer firma tokens con el mismo shape que el backend real: sub numerico
// y exp, HS256.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer(secret string, ttl time.Duration, now func() time.Time) *tokenIssuer {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &tokenIssuer{secret: []byte(secret), ttl: ttl, now: now}
}

func (t *tokenIssuer) issue(userID uint) (string, error) {
	return t.issueAt(userID, t.now().Add(t.ttl))
}

func (t *tokenIssuer) issueAt(userID uint, expiresAt time.Time) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrTokenInvalid
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": expiresAt.Unix(),
	})
	return token.SignedString(t.secret)
}

// parse valida firma y expiracion y devuelve el id del usuario.
func (t *tokenIssuer) parse(tokenString string) (uint, error) {
	if strings.TrimSpace(tokenString) == "" {
		return 0, ErrTokenInvalid
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	_, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, ErrTokenInvalid
	}
	return uint(sub), nil
}
