// Package identity resolves bearer tokens into actors. Every mutating call
// consults it before touching a gig.
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gigs/models"
)

var ErrInvalidToken = errors.New("missing or invalid bearer token")

// Claims carried in the signed token.
type Claims struct {
	UserID int    `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Provider struct {
	secret []byte
}

func New(secret []byte) *Provider {
	return &Provider{secret: secret}
}

// Authorize parses the Authorization header and returns the acting identity.
func (p *Provider) Authorize(r *http.Request) (models.Actor, error) {
	tokenString := r.Header.Get("Authorization")
	if !strings.HasPrefix(tokenString, "Bearer ") {
		return models.Actor{}, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString[7:], claims, func(token *jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, ErrInvalidToken
	}
	switch claims.Role {
	case models.RoleUser, models.RoleProvider, models.RoleAdmin:
	default:
		return models.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if claims.UserID <= 0 {
		return models.Actor{}, ErrInvalidToken
	}
	return models.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

// Token signs a short-lived token for the given actor. Used by tooling and
// tests; issuance for real users lives with the auth service.
func (p *Provider) Token(actor models.Actor, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: actor.ID,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}
