package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"storefront/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(t *testing.T) (*UserService, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	svc := NewUserService(db, zerolog.Nop())
	svc.cost = bcrypt.MinCost
	return svc, mock
}

func TestRegisterCreatesUserWithHashedPassword(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email = ? OR username = ?")).
		WithArgs("ada@example.com", "ada").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, email, password, role)")).
		WithArgs("ada", "ada@example.com", sqlmock.AnyArg(), "user").
		WillReturnResult(sqlmock.NewResult(42, 1))

	user, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: " ada ",
		Email:    "ada@example.com",
		Password: "hunter2",
	})

	require.NoError(t, err)
	assert.Equal(t, 42, user.ID)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, "user", user.Role)
	assert.Empty(t, user.PasswordHash)
}

func TestRegisterRequiresAllFields(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.Register(context.Background(), &models.RegisterRequest{Username: "ada", Email: "", Password: "x"})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterRejectsExistingUser(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email = ? OR username = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	_, err := svc.Register(context.Background(), &models.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "x"})

	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterMapsDuplicateKeyToConflict(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := svc.Register(context.Background(), &models.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "x"})

	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterStoreFailure(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("connection reset"))

	_, err := svc.Register(context.Background(), &models.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "x"})

	assert.ErrorIs(t, err, ErrStore)
}

func userRows(t *testing.T, id int, username, email, password, role string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "username", "email", "password", "role"}).
		AddRow(id, username, email, string(hash), role)
}

func TestAuthenticateSuccess(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, email, password, role FROM users WHERE email = ?")).
		WithArgs("ada@example.com").
		WillReturnRows(userRows(t, 3, "ada", "ada@example.com", "hunter2", "admin"))

	user, err := svc.Authenticate(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "hunter2"})

	require.NoError(t, err)
	assert.Equal(t, 3, user.ID)
	assert.True(t, user.IsAdmin())
}

func TestAuthenticateDoesNotRevealWhichPartFailed(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("ada@example.com").
		WillReturnRows(userRows(t, 3, "ada", "ada@example.com", "hunter2", "user"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password", "role"}))

	_, wrongPassword := svc.Authenticate(context.Background(), &models.LoginRequest{Email: "ada@example.com", Password: "nope"})
	_, unknownEmail := svc.Authenticate(context.Background(), &models.LoginRequest{Email: "nobody@example.com", Password: "nope"})

	assert.ErrorIs(t, wrongPassword, ErrNotFound)
	assert.ErrorIs(t, unknownEmail, ErrNotFound)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthenticateNormalizesUnknownRole(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WillReturnRows(userRows(t, 9, "bob", "bob@example.com", "pw", ""))

	user, err := svc.Authenticate(context.Background(), &models.LoginRequest{Email: "bob@example.com", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
}

func TestEnsureAdminCreatesMissingAccount(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WithArgs("root@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password", "role"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, email, password, role)")).
		WithArgs("root", "root@example.com", sqlmock.AnyArg(), "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, svc.EnsureAdmin(context.Background(), "root", "root@example.com", "pw"))
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = ?")).
		WillReturnRows(userRows(t, 5, "root", "root@example.com", "pw", "user"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = ? WHERE id = ?")).
		WithArgs("admin", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.EnsureAdmin(context.Background(), "root", "root@example.com", "pw"))
}
