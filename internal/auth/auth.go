// Package auth issues and verifies HS256 bearer tokens for the tutor API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

const (
	DefaultTokenTTL = 24 * time.Hour
	tokenCookie     = "auth_token"
	issuer          = "investment-tutor"
)

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims carries the caller identity.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	Subject string
	Scope   string
}

// Authenticator validates bearer tokens. A disabled Authenticator lets every request through.
type Authenticator struct {
	secret  []byte
	enabled bool
	ttl     time.Duration
	now     func() time.Time
}

// New returns an Authenticator. An enabled one requires a secret.
func New(secret string, enabled bool) (*Authenticator, error) {
	if enabled && secret == "" {
		return nil, ErrMissingSecret
	}
	return &Authenticator{
		secret:  []byte(secret),
		enabled: enabled,
		ttl:     DefaultTokenTTL,
		now:     time.Now,
	}, nil
}

// Enabled reports whether requests must carry a token.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.enabled
}

// GenerateJWT signs a token for subject, valid for the default TTL.
func (a *Authenticator) GenerateJWT(subject, scope string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrMissingSecret
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is required")
	}
	now := a.now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateJWT validates and parses a token.
func (a *Authenticator) ValidateJWT(tokenString string) (*Principal, error) {
	if len(a.secret) == 0 {
		return nil, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Principal{Subject: claims.Subject, Scope: claims.Scope}, nil
}

// Middleware rejects requests without a valid token from the Authorization
// header or the auth_token cookie. Disabled authenticators pass through.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := bearerToken(r)
		if tokenString == "" {
			unauthorized(w, "authentication required")
			return
		}

		p, err := a.ValidateJWT(tokenString)
		if err != nil {
			unauthorized(w, "invalid authentication token")
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tutor"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// PrincipalFromContext returns the caller attached by Middleware, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}
