package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"postservice/schemas"
)

type Claims struct {
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver reads an HS256 bearer token. The username comes from the
// username claim, falling back to sub.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (j *JWTResolver) Resolve(r *http.Request) (schemas.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return schemas.Identity{}, fmt.Errorf("%w: missing bearer token", ErrNoIdentity)
	}
	tokenStr := strings.TrimSpace(header[len("bearer "):])

	var claims Claims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(t *jwt.Token) (any, error) {
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return schemas.Identity{}, fmt.Errorf("%w: invalid token: %v", ErrNoIdentity, err)
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return schemas.Identity{}, fmt.Errorf("%w: token carries no username", ErrNoIdentity)
	}

	return schemas.Identity{
		Username: schemas.UserId(username),
		Role:     schemas.Role(claims.Role),
	}, nil
}

// Sign issues a token the resolver accepts. Used by tests and local tooling.
func (j *JWTResolver) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
