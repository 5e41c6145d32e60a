package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	db     *sql.DB
	logger zerolog.Logger
	cost   int
}

func NewUserService(db *sql.DB, logger zerolog.Logger) *UserService {
	return &UserService{
		db:     db,
		logger: logger,
		cost:   bcrypt.DefaultCost,
	}
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email, and password are required", ErrValidation)
	}

	var existingID int
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ? OR username = ?", req.Email, req.Username).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("%w: user with this email or username already exists", ErrConflict)
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error().Err(err).Msg("Error checking existing user")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := string(models.RoleUser)
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)",
		req.Username, req.Email, string(hashedPassword), role,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, fmt.Errorf("%w: user with this email or username already exists", ErrConflict)
		}
		s.logger.Error().Err(err).Msg("Error creating user")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error getting user ID")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	user := &models.User{
		ID:       int(userID),
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
	}
	s.logger.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("User registered successfully")
	return user, nil
}

// Authenticate returns ErrNotFound for both an unknown email and a wrong
// password so callers cannot tell the two apart.
func (s *UserService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.getUserBy(ctx, "email", strings.TrimSpace(req.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("email", req.Email).Msg("Failed authentication attempt")
		return nil, fmt.Errorf("%w: invalid email or password", ErrNotFound)
	}

	s.logger.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("User authenticated successfully")
	return user, nil
}

func (s *UserService) getUserBy(ctx context.Context, column string, value any) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password, role FROM users WHERE "+column+" = ?",
		value,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("by", column).Msg("Error fetching user")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	user.Role = models.NormalizeRole(user.Role)
	return &user, nil
}

// EnsureAdmin makes sure an admin account exists for email, creating it or
// promoting the existing account.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: admin email and password are required", ErrValidation)
	}

	existing, err := s.getUserBy(ctx, "email", email)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return nil
		}
		if _, err := s.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", string(models.RoleAdmin), existing.ID); err != nil {
			s.logger.Error().Err(err).Int("user_id", existing.ID).Msg("Error promoting user to admin")
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
		s.logger.Info().Int("user_id", existing.ID).Str("email", email).Msg("User promoted to admin")
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)",
		username, email, string(hashedPassword), string(models.RoleAdmin),
	); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Error creating admin user")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	s.logger.Info().Str("email", email).Msg("Admin user created")
	return nil
}
