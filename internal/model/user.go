package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the account role carried in the access token.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleTeacher    Role = "teacher"
)

// UserStatus gates login. Only active users receive tokens.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusRejected UserStatus = "rejected"
)

// User is a registered account. Students are anonymous and never have one.
type User struct {
	ID           uuid.UUID  `json:"user_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserWithTeacher is a user plus its teacher profile, if any.
type UserWithTeacher struct {
	*User
	TeacherInfo *TeacherProfile `json:"teacher_info,omitempty"`
}

// RegisterRequest is the payload for teacher self-registration.
type RegisterRequest struct {
	Email      string  `json:"email" binding:"required,email,max=255"`
	Password   string  `json:"password" binding:"required,min=6,max=128"`
	FirstName  string  `json:"first_name" binding:"required,max=100"`
	LastName   string  `json:"last_name" binding:"required,max=100"`
	SchoolName *string `json:"school_name" binding:"omitempty,max=255"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}
