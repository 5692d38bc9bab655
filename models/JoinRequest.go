package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	JoinRequestPending  = "pending"
	JoinRequestAccepted = "accepted"
	JoinRequestRejected = "rejected"
)

// JoinRequest is a request to join a private club. A partial unique index on
// (club_id, requester_id) WHERE status = 'pending' (created in the migration
// step) guarantees one live request per user and club while still allowing a
// fresh request after a rejection.
type JoinRequest struct {
	ID     string `json:"id" gorm:"type:char(24);primaryKey"`
	ClubID string `json:"club" gorm:"type:char(24);not null;index"`
	Club   Club   `json:"-" gorm:"foreignKey:ClubID"`

	RequesterID uint `json:"-" gorm:"not null;index"`
	Requester   User `json:"requester" gorm:"foreignKey:RequesterID"`

	Status  string `json:"status" gorm:"size:16;index"`
	Message string `json:"message" gorm:"size:500"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	RespondedAt *time.Time `json:"respondedAt"`
}

func (r *JoinRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewHexID()
	}
	if r.Status == "" {
		r.Status = JoinRequestPending
	}
	return nil
}
