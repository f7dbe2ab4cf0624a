package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityKind string

const (
	ActivityStageMoved ActivityKind = "stage_moved"
	ActivityRejected   ActivityKind = "rejected"
	ActivityAssigned   ActivityKind = "assigned"
	ActivityUnassigned ActivityKind = "unassigned"
	ActivityNote       ActivityKind = "note"
	ActivitySubmitted  ActivityKind = "submitted"
)

// Activity is an append-only audit entry attached to an application. Rows
// are never updated or deleted, so there is no soft-delete column.
type Activity struct {
	ID            uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	ApplicationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"application_id"`
	ActorID       *uuid.UUID   `gorm:"type:uuid" json:"actor_id,omitempty"`
	Kind          ActivityKind `gorm:"not null" json:"kind"`
	Message       string       `gorm:"not null" json:"message"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
