package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role identifies what a session may do within a hub.
type Role string

const (
	RoleSuperAdmin  Role = "SUPERADMIN"
	RoleAdmin       Role = "ADMIN"
	RoleFacilitator Role = "FACILITATOR"
	RolePupil       Role = "PUPIL"
)

// LoginRequest authenticates against a hub. Facilitators supply their staff id,
// pupils their index number; admins the hub access key.
type LoginRequest struct {
	Role      Role   `json:"role" validate:"required,oneof=SUPERADMIN ADMIN FACILITATOR PUPIL"`
	HubID     string `json:"hub_id" validate:"required_unless=Role SUPERADMIN"`
	AccessKey string `json:"access_key" validate:"required"`
	StaffID   string `json:"staff_id" validate:"required_if=Role FACILITATOR"`
	StudentID int    `json:"student_id" validate:"required_if=Role PUPIL"`
}

// LoginResponse returns the issued token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	HubID       string    `json:"hub_id,omitempty"`
	Role        Role      `json:"role"`
	Subject     string    `json:"subject,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}

// HubClaims is the JWT payload scoping a session to a hub.
type HubClaims struct {
	HubID     string `json:"hub_id,omitempty"`
	Role      Role   `json:"role"`
	Subject   string `json:"taught_subject,omitempty"`
	StaffID   string `json:"staff_id,omitempty"`
	StudentID int    `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}
