package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types emitted by the membership workflows.
const (
	NotificationJoinRequest     = "join_request"
	NotificationRequestApproved = "request_approved"
	NotificationRequestRejected = "request_rejected"
	NotificationNewMember       = "new_member"
	NotificationRoleChange      = "role_change"
)

// Notification is written by the dispatcher only. Rows past ExpiresAt are
// purged the next time the recipient lists notifications.
type Notification struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"userID" gorm:"not null;index"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	SenderID *uint  `json:"senderID"`
	ClubID   string `json:"clubID" gorm:"type:char(24);index"`

	Type    string         `json:"type" gorm:"size:32;index"`
	Title   string         `json:"title" gorm:"size:100"`
	Message string         `json:"message" gorm:"size:500"`
	Payload datatypes.JSON `json:"payload"`

	IsRead    bool       `json:"isRead" gorm:"default:false"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"index"`
}
