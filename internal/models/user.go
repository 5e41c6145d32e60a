package models

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == string(RoleAdmin)
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// NormalizeRole maps anything outside the known roles to RoleUser.
func NormalizeRole(role string) string {
	switch UserRole(role) {
	case RoleAdmin, RoleUser:
		return role
	default:
		return string(RoleUser)
	}
}

type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

type LoginRequest struct {
	Email    string
	Password string
}
