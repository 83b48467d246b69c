package account

import (
	"strings"
	"time"

	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/validation"
)

// ValidationSummary heads every account validation error
const ValidationSummary = "Validation error"

// RegisterRequest is the body of a registration
type RegisterRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,bcryptmax"`
	Role     auth.Role `json:"role" validate:"omitempty,oneof=user admin"`
}

// LoginRequest is the body of a login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,bcryptmax"`
}

// Session is the result of a successful register or login
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  *auth.Identity
}

var registerMessages = validation.Messages{
	"email.required":     "Email is required",
	"email.email":        "Email is not valid",
	"password.required":  "Password is required",
	"password.bcryptmax": "Password must be at most 72 bytes",
	"role.oneof":         "Role must be one of: user, admin",
}

var changePasswordMessages = validation.Messages{
	"currentPassword.required": "Current password and new password are required",
	"newPassword.required":     "Current password and new password are required",
	"newPassword.min":          "New password must be at least 6 characters long",
	"newPassword.bcryptmax":    "Password must be at most 72 bytes",
}

// NormalizeEmail trims and lower-cases an email for lookup and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
