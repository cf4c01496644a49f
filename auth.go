package main

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Session management (24-hour expiry)
const (
	SessionDuration = 24 * time.Hour
	SecretBytes     = 32
	TokenIssuer     = "dw1000-manager"
)

// Authenticator issues and checks session tokens. Only one session is
// active at a time; a new login replaces it and logout revokes it.
type Authenticator struct {
	passwordHash []byte
	secret       []byte
	now          func() time.Time

	mu        sync.RWMutex
	sessionID string
}

// NewAuthenticator creates an authenticator. An empty secret is replaced by
// a random one, which invalidates tokens across restarts.
func NewAuthenticator(passwordHash, secret string) (*Authenticator, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, SecretBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
	}

	return &Authenticator{
		passwordHash: []byte(passwordHash),
		secret:       key,
		now:          time.Now,
	}, nil
}

// Login checks the password and starts a new session
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, fmt.Errorf("invalid password")
	}

	id := uuid.New().String()
	now := a.now()
	expires := now.Add(SessionDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        id,
		Issuer:    TokenIssuer,
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	a.mu.Lock()
	a.sessionID = id
	a.mu.Unlock()

	return signed, expires, nil
}

// Logout revokes the active session
func (a *Authenticator) Logout() {
	a.mu.Lock()
	a.sessionID = ""
	a.mu.Unlock()
}

// Validate reports whether token belongs to the active session
func (a *Authenticator) Validate(tokenString string) bool {
	if strings.TrimSpace(tokenString) == "" {
		return false
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.sessionID != "" && claims.ID == a.sessionID
}

func (a *Authenticator) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	token, expires, err := a.Login(req.Password)
	if err != nil {
		slog.Warn("Failed login attempt", "ip", c.IP())
		return c.Status(401).JSON(fiber.Map{"error": "Invalid password"})
	}

	slog.Info("Successful login", "ip", c.IP())

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"expires": expires.Unix(),
	})
}

func (a *Authenticator) handleLogout(c *fiber.Ctx) error {
	a.Logout()
	slog.Info("User logged out", "ip", c.IP())
	return c.JSON(fiber.Map{"success": true})
}

func (a *Authenticator) middleware(c *fiber.Ctx) error {
	// Check for token in header first, fallback to query parameter (for WebSocket)
	token := c.Get("X-Auth-Token")
	if token == "" {
		token = c.Query("token")
	}

	if !a.Validate(token) {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}
	return c.Next()
}
