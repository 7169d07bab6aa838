package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tutoriq/tutoriq-be/internal/models"
)

// CookieName is the name of the session cookie.
const CookieName = "token"

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 24 * time.Hour

// Claims defines the JWT claims structure.
type Claims struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Summary returns the identity carried by the claims.
func (c *Claims) Summary() models.UserSummary {
	return models.UserSummary{ID: c.UserID, Name: c.Name, Email: c.Email}
}

type contextKey string

// UserClaimsKey is the context key for user claims.
const UserClaimsKey = contextKey("userClaims")

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// ClaimsFromContext returns the claims placed by the middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// Issuer signs and verifies session tokens and manages the session cookie.
type Issuer struct {
	key    []byte
	ttl    time.Duration
	secure bool
}

// NewIssuer creates an Issuer. secure sets the Secure flag on cookies.
func NewIssuer(secret string, ttl time.Duration, secure bool) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{key: []byte(secret), ttl: ttl, secure: secure}
}

// Generate creates a new JWT for a given user and returns it with its expiry.
func (i *Issuer) Generate(user models.UserSummary) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(i.ttl)
	claims := &Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expirationTime, nil
}

// Validate parses and validates a JWT string. Expired tokens and tokens signed
// with another key or algorithm are rejected.
func (i *Issuer) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// SetCookie writes the session cookie.
func (i *Issuer) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

// ClearCookie expires the session cookie.
func (i *Issuer) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

// Middleware protects routes. Every rejection answers 401 and clears the
// session cookie.
func (i *Issuer) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			// 1. Try to get the token from the Authorization header
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				tokenStr = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			}

			// 2. If not in header, fall back to the cookie
			if tokenStr == "" {
				if cookie, err := r.Cookie(CookieName); err == nil {
					tokenStr = cookie.Value
				}
			}

			if tokenStr == "" {
				i.reject(w, "Access denied. Please login.")
				return
			}

			claims, err := i.Validate(tokenStr)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected session token")
				i.reject(w, "Invalid token. Please login again.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func (i *Issuer) reject(w http.ResponseWriter, message string) {
	i.ClearCookie(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
