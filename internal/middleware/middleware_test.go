package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func serveWithSession(h http.Handler, s *session.Session) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req = req.WithContext(session.NewContext(req.Context(), s))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginRequiredRedirectsAnonymous(t *testing.T) {
	manager := session.NewManager("secret", false, zerolog.Nop())
	called := false
	h := LoginRequired(manager, "Please login first!")(okHandler(&called))

	rec := serveWithSession(h, &session.Session{})

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	flashes := manager.Load(req).PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, session.Warning, flashes[0].Category)
}

func TestLoginRequiredPassesAuthenticated(t *testing.T) {
	manager := session.NewManager("secret", false, zerolog.Nop())
	called := false
	h := LoginRequired(manager, "Please login first!")(okHandler(&called))

	rec := serveWithSession(h, &session.Session{UserID: 1, UserName: "ada", UserRole: "user"})

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRequiredRejectsRegularUser(t *testing.T) {
	manager := session.NewManager("secret", false, zerolog.Nop())
	called := false
	h := AdminRequired(manager)(okHandler(&called))

	rec := serveWithSession(h, &session.Session{UserID: 1, UserName: "ada", UserRole: "user"})

	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))
}

func TestAdminRequiredPassesAdmin(t *testing.T) {
	manager := session.NewManager("secret", false, zerolog.Nop())
	called := false
	h := AdminRequired(manager)(okHandler(&called))

	serveWithSession(h, &session.Session{UserID: 2, UserName: "root", UserRole: "admin"})

	assert.True(t, called)
}

func TestSessionsAttachesLoadedSession(t *testing.T) {
	manager := session.NewManager("secret", false, zerolog.Nop())
	s := &session.Session{}
	s.Login(5, "ada", "user")
	cookieRec := httptest.NewRecorder()
	require.NoError(t, manager.Save(cookieRec, s))

	var seen *session.Session
	h := Sessions(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = session.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookieRec.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, 5, seen.UserID)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	called := false
	h := NewRateLimiter(rate.Limit(0.0001), 1).Middleware()(okHandler(&called))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestErrorHandlingRecoversPanic(t *testing.T) {
	h := ErrorHandling(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoveredPanicLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := RequestLogging(logger)(ErrorHandling(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var panicLine string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "Panic recovered") {
			panicLine = line
		}
	}
	require.NotEmpty(t, panicLine)
	assert.Contains(t, panicLine, `"request_id":"req-42"`)
}

func TestRequestLoggingPropagatesRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
}

func TestSecurityHeaders(t *testing.T) {
	called := false
	rec := httptest.NewRecorder()
	SecurityHeaders()(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
