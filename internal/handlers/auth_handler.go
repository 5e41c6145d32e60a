package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/session"
)

type AuthHandler struct {
	Base
	userService *services.UserService
}

func NewAuthHandler(db *sql.DB, base Base) *AuthHandler {
	return &AuthHandler{
		Base:        base,
		userService: services.NewUserService(db, base.Logger),
	}
}

type registerForm struct {
	Username string
	Email    string
}

type loginForm struct {
	Email string
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", "Register", registerForm{})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req := models.RegisterRequest{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	form := registerForm{Username: req.Username, Email: req.Email}
	s := session.FromContext(r.Context())

	_, err := h.userService.Register(r.Context(), &req)
	switch {
	case err == nil:
		h.redirect(w, r, "/auth/login", session.Success, "Account created successfully!")
	case errors.Is(err, services.ErrValidation):
		s.AddFlash(session.Warning, "Username, email and password are required.")
		h.render(w, r, http.StatusBadRequest, "register.html", "Register", form)
	case errors.Is(err, services.ErrConflict):
		s.AddFlash(session.Danger, "An account with this email or username already exists.")
		h.render(w, r, http.StatusConflict, "register.html", "Register", form)
	default:
		h.Logger.Error().Err(err).Str("email", req.Email).Msg("Registration failed")
		s.AddFlash(session.Danger, "Registration failed. Please try again.")
		h.render(w, r, http.StatusInternalServerError, "register.html", "Register", form)
	}
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", "Login", loginForm{})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req := models.LoginRequest{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	s := session.FromContext(r.Context())

	user, err := h.userService.Authenticate(r.Context(), &req)
	metrics.RecordLogin(err == nil)
	if err != nil {
		status := http.StatusUnauthorized
		message := "Invalid email or password"
		if isStoreError(err) {
			h.Logger.Error().Err(err).Msg("Login failed")
			status = http.StatusInternalServerError
			message = "Login is unavailable right now. Please try again."
		} else {
			h.Logger.Warn().Str("email", req.Email).Msg("Login failed")
		}
		s.AddFlash(session.Danger, message)
		h.render(w, r, status, "login.html", "Login", loginForm{Email: req.Email})
		return
	}

	s.Clear()
	s.Login(user.ID, user.Username, user.Role)
	h.redirect(w, r, "/dashboard", session.Success, "Welcome back, "+user.Username+"!")
}

// Logout is safe to call without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session.FromContext(r.Context()).Clear()
	h.redirect(w, r, "/auth/login", session.Info, "You have been logged out.")
}
