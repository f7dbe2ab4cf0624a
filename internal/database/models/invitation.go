package models

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a single-use, time-boxed credential that grants a membership
// when redeemed. Only a one-way hash of the token is stored; the plaintext is
// returned once at creation. Expiry is evaluated lazily at validation time.
// A partial unique index on (email, company_id) where status is pending backs
// the one-outstanding-invite rule against concurrent inserts.
type Invitation struct {
	Base
	Email       string           `gorm:"not null;index;uniqueIndex:idx_invitations_one_pending,where:status = 'pending'" json:"email"`
	CompanyID   uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_invitations_one_pending,where:status = 'pending'" json:"company_id"`
	Role        Role             `gorm:"not null" json:"role"`
	Token       string           `gorm:"index" json:"-"`
	HashedToken string           `gorm:"index" json:"-"`
	Status      InvitationStatus `gorm:"not null;default:'pending';index" json:"status"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	InvitedBy   uuid.UUID        `gorm:"type:uuid" json:"invited_by"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (Invitation) TableName() string {
	return "invitations"
}

// Expired reports whether the invitation's deadline has passed at t.
func (i *Invitation) Expired(t time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(t)
}

// Redeemable reports whether the invitation can still be accepted at t.
func (i *Invitation) Redeemable(t time.Time) bool {
	return i.Status == InvitationPending && !i.Expired(t)
}
