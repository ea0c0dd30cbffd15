package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest holds the self-service sign-up payload. Role is restricted
// to STUDENT or INSTRUCTOR; ADMIN is only assignable through the user
// management API.
type RegisterRequest struct {
	FullName  string   `json:"name" validate:"required"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	Role      UserRole `json:"role" validate:"omitempty,oneof=STUDENT INSTRUCTOR"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// SessionResponse returns the issued session token, its lifetime and the
// role-appropriate redirect target.
type SessionResponse struct {
	Token      string      `json:"token"`
	ExpiresIn  int64       `json:"expires_in"`
	IssuedAt   time.Time   `json:"issued_at"`
	RedirectTo string      `json:"redirect_to"`
	User       UserProfile `json:"user"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ForgotPasswordRequest payload for initiating the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// EnrollmentSummary is the compact enrollment view embedded in profiles.
type EnrollmentSummary struct {
	CourseID    string  `db:"course_id" json:"course_id"`
	CourseTitle string  `db:"course_title" json:"course_title"`
	Progress    float64 `db:"progress" json:"progress"`
	Completed   bool    `db:"completed" json:"completed"`
}

// UserProfile is the public projection of a user returned by auth endpoints.
type UserProfile struct {
	ID          string              `json:"id"`
	Email       string              `json:"email"`
	FullName    string              `json:"full_name"`
	Role        UserRole            `json:"role"`
	Verified    bool                `json:"verified"`
	Avatar      *string             `json:"avatar,omitempty"`
	Bio         *string             `json:"bio,omitempty"`
	Enrollments []EnrollmentSummary `json:"enrollments,omitempty"`
}

// SessionClaims represents the JWT payload for session tokens.
type SessionClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
