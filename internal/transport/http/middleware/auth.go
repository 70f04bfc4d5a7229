package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"babagram/internal/httputil"
	"babagram/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated actor id
	UserIDKey contextKey = "user_id"
)

// Token error codes
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

// AuthMiddleware validates HS256 bearer tokens and puts the user_id claim
// into the request context. Checks the Authorization header first (mobile),
// then the access_token cookie (web).
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			userID, err := ParseToken(tokenString, jwtSecret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					httputil.WriteError(w, http.StatusUnauthorized, CodeTokenExpired, "Access token has expired")
					return
				}
				httputil.WriteError(w, http.StatusUnauthorized, CodeTokenInvalid, "Invalid authentication token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the actor id when a valid token is present
// and lets anonymous requests through otherwise.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := bearerToken(r); tokenString != "" {
				if userID, err := ParseToken(tokenString, jwtSecret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// ParseToken validates a token and returns its user_id claim. Numeric ids
// from older tokens are accepted and rendered in base 10.
func ParseToken(tokenString, jwtSecret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	switch v := claims["user_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	}
	return "", fmt.Errorf("%w: user_id", jwt.ErrTokenInvalidClaims)
}

// GetUserIDFromContext extracts the actor id from the request context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// RequireUserID is GetUserIDFromContext for service calls: a missing id is
// model.ErrUnauthenticated.
func RequireUserID(ctx context.Context) (string, error) {
	if id, ok := GetUserIDFromContext(ctx); ok {
		return id, nil
	}
	return "", model.ErrUnauthenticated
}
