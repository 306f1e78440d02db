package domain

import "time"

// Roles a principal can hold. The role is immutable once issued into a
// token; the authoritative copy is the user record.
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	PasswordHash    string     // argon2id PHC encoded
	Role            string     // customer, seller or admin
	EmailVerifiedAt *time.Time // nil while the account is pending verification
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmailVerified reports whether the account left the pending-verification state.
func (u User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
