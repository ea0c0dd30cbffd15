package models

import "time"

// UserRole represents the available roles for route and resource gating.
type UserRole string

const (
	RoleStudent    UserRole = "STUDENT"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleAdmin      UserRole = "ADMIN"
)

// User represents an application user stored in the users table. Emails are
// stored lower-cased and are unique among rows where deleted_at is NULL.
// PasswordHash is nil for social-only accounts, which cannot log in with
// credentials.
type User struct {
	ID                string     `db:"id" json:"id"`
	Email             string     `db:"email" json:"email"`
	PasswordHash      *string    `db:"password_hash" json:"-"`
	FullName          string     `db:"full_name" json:"full_name"`
	Role              UserRole   `db:"role" json:"role"`
	EmailVerifiedAt   *time.Time `db:"email_verified_at" json:"email_verified_at,omitempty"`
	Avatar            *string    `db:"avatar" json:"avatar,omitempty"`
	Bio               *string    `db:"bio" json:"bio,omitempty"`
	VerificationToken *string    `db:"verification_token" json:"-"`
	ResetToken        *string    `db:"reset_token" json:"-"`
	ResetTokenExpires *time.Time `db:"reset_token_expires" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Verified reports whether the user's email has been confirmed.
func (u *User) Verified() bool {
	return u != nil && u.EmailVerifiedAt != nil
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
