package models

import "time"

// AuditLog records club-management actions (member removal, promotions,
// demotions, request decisions) for later review.
type AuditLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ActorUserID  uint      `json:"actorUserId" gorm:"index"`
	Action       string    `json:"action" gorm:"size:64;index"`
	ResourceType string    `json:"resourceType" gorm:"size:32"`
	ResourceID   string    `json:"resourceId" gorm:"size:64;index"`
	BeforeJSON   string    `json:"beforeJson" gorm:"type:text"`
	AfterJSON    string    `json:"afterJson" gorm:"type:text"`
	IPAddress    string    `json:"ipAddress" gorm:"size:64"`
	CreatedAt    time.Time `json:"createdAt"`
}
