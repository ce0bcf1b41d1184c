package model

// Role is an account role as issued by the backend.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleStaff    Role = "STAFF"
	RoleCustomer Role = "CUSTOMER"
	RoleGuest    Role = "GUEST"
)

// User is the profile returned by GET /api/users/me.
//
// Fields:
//  ID    – userID.
//  Name  – display name, unique on the backend.
//  Email – login address.
//  Role  – account role.
type User struct {
	ID    int64  `json:"userID" validate:"required"`
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  Role   `json:"role"`
}

// AuthResponse is returned by login and OTP verification.  The token is a
// bearer JWT for every authenticated call.
type AuthResponse struct {
	Token string `json:"token" validate:"required"`
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /api/auth/register.  Registration
// completes only after the emailed OTP is verified.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// VerifyOTPRequest is the body of POST /api/auth/verify-otp.
type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTPCode string `json:"otpCode" validate:"required"`
}

// EmailRequest is the body of forgot-password and resend-otp.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTPCode     string `json:"otpCode" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// UpdateProfileRequest is the body of PUT /api/users/me.  Empty fields are
// left unchanged by the backend.
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// ChangePasswordRequest is the body of PUT /api/users/change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// MessageResponse is the generic {message, email} acknowledgement of the
// identity endpoints.
type MessageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}
