package model

import "time"

// Roles stored in the profiles table. Admins may publish shared scripts,
// upload resources and review pending accounts.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Approval statuses gating access to the main application. A profile starts
// as pending and is moved by an administrator.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Profile is the application-level record describing a subject. Exactly one
// profile exists per subject once created; creation normally happens through
// a server-side trigger on account creation, occasionally with a short
// propagation delay that callers must tolerate.
//
// Fields:
//  ID             – equals the session subject id.
//  FullName       – display name; the only field the owning user may change.
//  Role           – "user" or "admin".
//  ApprovalStatus – "pending", "approved" or "rejected".
//  CreatedAt      – timestamp of creation.
type Profile struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	ApprovalStatus string    `json:"approval_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }
