package auth

import "time"

// User is the credential-side view of an account, loaded for login.
type User struct {
	ID              int64
	Name            string
	Email           string
	PasswordHash    string
	IsActive        bool
	EmailVerifiedAt *time.Time
}
