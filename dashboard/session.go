package dashboard

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maanas1234/Celestia-Hackathon/handlers"
)

const (
	sessionCookieName = "safewatch_session"
	sessionIssuer     = "safewatch-dashboard"
)

// SessionManager issues HS256 session cookies. The signing key is random per
// process, so a restart signs everybody out.
type SessionManager struct {
	key []byte
	ttl time.Duration
}

func NewSessionManager(ttl time.Duration) (*SessionManager, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{key: key, ttl: ttl}, nil
}

// Issue signs a token for username and sets it as the session cookie.
func (sm *SessionManager) Issue(w http.ResponseWriter, username string) error {
	now := time.Now()
	expirationTime := now.Add(sm.ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    sessionIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(sm.key)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  expirationTime,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
}

// Require redirects requests without a valid session to the login page.
func (sm *SessionManager) Require(next http.Handler) http.Handler {
	return handlers.SessionMiddleware(sessionCookieName, sm.key, "/login")(next)
}
