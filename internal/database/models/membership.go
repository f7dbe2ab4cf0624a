package models

import "github.com/google/uuid"

// Role is the set of roles a membership can carry within a company.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleHR          Role = "hr"
	RoleRecruiter   Role = "recruiter"
	RoleInterviewer Role = "interviewer"
)

// AssignableRoles are the roles an admin may grant or change a member to.
// The admin role itself is only ever created at company registration.
var AssignableRoles = map[Role]bool{
	RoleHR:          true,
	RoleRecruiter:   true,
	RoleInterviewer: true,
}

func (r Role) Valid() bool {
	return r == RoleAdmin || AssignableRoles[r]
}

type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipRemoved   MembershipStatus = "removed"
	MembershipBlocked   MembershipStatus = "blocked"
)

// membershipTransitions is the explicit lifecycle table. A removed membership
// can be reactivated by a fresh invitation; a blocked one cannot.
var membershipTransitions = map[MembershipStatus]map[MembershipStatus]bool{
	MembershipActive:    {MembershipSuspended: true, MembershipRemoved: true, MembershipBlocked: true},
	MembershipSuspended: {MembershipActive: true, MembershipRemoved: true, MembershipBlocked: true},
	MembershipRemoved:   {MembershipActive: true},
	MembershipBlocked:   {},
}

// CanTransitionTo reports whether the lifecycle table permits moving from s
// to target.
func (s MembershipStatus) CanTransitionTo(target MembershipStatus) bool {
	return membershipTransitions[s][target]
}

// Membership binds a User to a Company with a role and lifecycle status.
// A user holds at most one active membership across all companies.
type Membership struct {
	Base
	UserID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_company" json:"user_id"`
	CompanyID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_company;index" json:"company_id"`
	Role      Role             `gorm:"not null;default:'recruiter'" json:"role"`
	Status    MembershipStatus `gorm:"not null;default:'active';index" json:"status"`

	// Relationships
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}
