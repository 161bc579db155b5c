package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"rentalshop/internal/config"

	"github.com/labstack/echo/v4"
)

// Manager handles authentication for the admin routes (item mutations,
// reindex triggers, analytics).
type Manager struct {
	config      *config.Config
	tokens      map[string]time.Time
	mu          sync.Mutex
	tokenExpiry time.Duration
}

// NewManager creates a new authentication manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config:      cfg,
		tokens:      make(map[string]time.Time),
		tokenExpiry: 24 * time.Hour,
	}
}

// Authenticate validates the admin credentials and returns a session token
func (am *Manager) Authenticate(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(am.config.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(am.config.AdminPassword)) == 1
	if !userOK || !passOK {
		return "", fmt.Errorf("invalid credentials")
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	am.mu.Lock()
	am.tokens[token] = time.Now().Add(am.tokenExpiry)
	am.cleanupExpiredLocked()
	am.mu.Unlock()

	return token, nil
}

// ValidateToken checks if a session token is valid and unexpired
func (am *Manager) ValidateToken(token string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	expiry, exists := am.tokens[token]
	if !exists {
		return false
	}
	if time.Now().After(expiry) {
		delete(am.tokens, token)
		return false
	}
	return true
}

func (am *Manager) cleanupExpiredLocked() {
	now := time.Now()
	for token, expiry := range am.tokens {
		if now.After(expiry) {
			delete(am.tokens, token)
		}
	}
}

// Middleware creates middleware protecting admin routes. The token comes
// from the Authorization header or, for download-style links, the token
// query parameter.
func Middleware(authManager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get("Authorization")
			if token != "" {
				token = strings.TrimPrefix(token, "Bearer ")
			} else {
				token = c.QueryParam("token")
			}

			if token == "" || !authManager.ValidateToken(token) {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized. Please login first.",
				})
			}

			c.Set("auth_token", token)
			return next(c)
		}
	}
}
