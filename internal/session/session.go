// Package session keeps the per-request login state and flash notices in a
// signed cookie.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	CookieName = "storefront_session"
	lifetime   = 24 * time.Hour
)

type Category string

const (
	Success Category = "success"
	Info    Category = "info"
	Warning Category = "warning"
	Danger  Category = "danger"
)

type Flash struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

type Session struct {
	UserID   int     `json:"user_id,omitempty"`
	UserName string  `json:"user_name,omitempty"`
	UserRole string  `json:"user_role,omitempty"`
	Flashes  []Flash `json:"flashes,omitempty"`
}

func (s *Session) Authenticated() bool {
	return s.UserID != 0
}

func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.UserRole == "admin"
}

// Login binds the user to the session.
func (s *Session) Login(userID int, name, role string) {
	s.UserID = userID
	s.UserName = name
	s.UserRole = role
}

// Clear drops the user and any pending notices.
func (s *Session) Clear() {
	*s = Session{}
}

func (s *Session) AddFlash(category Category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns the queued notices and empties the queue.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

func (s *Session) empty() bool {
	return !s.Authenticated() && len(s.Flashes) == 0
}

type claims struct {
	Session
	jwt.RegisteredClaims
}

type Manager struct {
	secretKey []byte
	secure    bool
	logger    zerolog.Logger
}

func NewManager(secret string, secure bool, logger zerolog.Logger) *Manager {
	return &Manager{
		secretKey: []byte(secret),
		secure:    secure,
		logger:    logger,
	}
}

// Load decodes the session cookie. A missing, tampered or expired cookie
// yields an empty anonymous session.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}

	c := &claims{}
	token, err := jwt.ParseWithClaims(cookie.Value, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secretKey, nil
	})
	if err != nil || !token.Valid {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			m.logger.Warn().Err(err).Msg("Invalid session cookie")
		}
		return &Session{}
	}

	s := c.Session
	return &s
}

// Save writes s back to the client. It must run before the response header
// is written.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s.empty() {
		m.expire(w)
		return nil
	}

	now := time.Now()
	c := &claims{
		Session: *s,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secretKey)
	if err != nil {
		m.logger.Error().Err(err).Msg("Error signing session")
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(lifetime),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) expire(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey string

const sessionKey contextKey = "session"

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the request's session, or an empty one when the
// session middleware did not run.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return &Session{}
}
