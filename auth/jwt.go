package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTAuthenticator validates a bearer token against a shared HMAC secret and
// trusts its "sub" claim as the user's identity. It is the deployment that
// wants real credentials instead of the anonymous session cookie.
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTAuthenticator(secret []byte) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false, nil
	}
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false, fmt.Errorf("authorization header is not a bearer token")
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("invalid bearer token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", false, fmt.Errorf("bearer token missing sub claim")
	}
	return sub, true, nil
}
