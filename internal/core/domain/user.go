package domain

const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// Role is a named authority level. Role names are unique.
type Role struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// User models an account. PasswordHash never leaves the service boundary:
// it is excluded from every JSON encoding, including cached payloads.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	RoleID       int64  `json:"roleId"`
	Role         *Role  `json:"role,omitempty"`
}

// RoleName returns the name of the user's role, or "" when it was not loaded.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Role
}
