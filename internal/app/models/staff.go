package models

import "time"

// StaffUser is an admissions office account used on the staff console
type StaffUser struct {
	ID           int64      `json:"id" db:"id" example:"1"`
	Email        string     `json:"email" db:"email" example:"admin@superior.edu.pk"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"fullName" db:"full_name" example:"Admissions Office"`
	Role         RoleType   `json:"role" db:"role" example:"ADMIN"`
	IsActive     bool       `json:"isActive" db:"is_active" example:"true"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}
