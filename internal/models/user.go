package models

import (
	"errors"
	"strings"
	"time"
)

// UserProfile is the student information printed on a proposal
type UserProfile struct {
	Name       string `json:"name"`
	StudentID  string `json:"studentId,omitempty"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Semester   string `json:"semester,omitempty"`
}

// Role of an account in the proposal service
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Account is a registered user of the proposal service
type Account struct {
	ID           string     `json:"id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	Role         Role       `json:"role"`
	StudentID    string     `json:"studentId,omitempty"`
	Department   string     `json:"department,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// Profile projects the account onto the proposal profile
func (a *Account) Profile() UserProfile {
	return UserProfile{
		Name:       a.FullName,
		StudentID:  a.StudentID,
		Department: a.Department,
		Email:      a.Email,
	}
}

// Permissions returns the permission set granted by the account role
func (a *Account) Permissions() []string {
	if a.Role == RoleAdmin {
		return []string{"*"}
	}
	return []string{"topics:read", "proposals:submit"}
}

// HasPermission checks a permission list for a required permission.
// Supports wildcard permissions like "proposals:*"
func HasPermission(granted []string, required string) bool {
	for _, perm := range granted {
		if perm == required || perm == "*" {
			return true
		}

		// "proposals:*" matches "proposals:review"
		if strings.HasSuffix(perm, ":*") {
			prefix := strings.TrimSuffix(perm, "*")
			if strings.HasPrefix(required, prefix) {
				return true
			}
		}
	}

	return false
}

// ErrPasswordMismatch is returned when password and confirmation differ
var ErrPasswordMismatch = errors.New("password and confirm password do not match")

// LoginRequest authenticates an existing account
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates an account and logs it in
type RegisterRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	Role            Role   `json:"role,omitempty"`
	StudentID       string `json:"studentId,omitempty"`
	Department      string `json:"department,omitempty"`
}

// CheckPasswords rejects a registration whose confirmation does not match
func (r *RegisterRequest) CheckPasswords() error {
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// AuthResult is the payload of a successful login or registration
type AuthResult struct {
	Message string   `json:"message,omitempty"`
	Token   string   `json:"token,omitempty"`
	User    *Account `json:"user,omitempty"`
}
