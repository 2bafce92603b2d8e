package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the signed-in username in the request context.
	UserContextKey ContextKey = "user"
)

// ParseSessionToken verifies an HS256 session token and returns its subject.
func ParseSessionToken(tokenString string, key []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid session token")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return claims.Subject, nil
}

// SessionMiddleware reads the session cookie, verifies it and adds the
// username to the request context. Requests without a valid session are
// redirected to loginPath.
func SessionMiddleware(cookieName string, key []byte, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			username, err := ParseSessionToken(cookie.Value, key)
			if err != nil {
				// expired or signed by an earlier process
				http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the username stored by SessionMiddleware.
func UserFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UserContextKey).(string)
	return username, ok && username != ""
}
