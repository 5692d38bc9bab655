package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Club is the central entity. Ids are 24-character hex strings so they stay
// compatible with the identifiers the mobile clients already store.
type Club struct {
	ID          string `json:"id" gorm:"type:char(24);primaryKey"`
	ClubName    string `json:"clubName" gorm:"size:120;uniqueIndex"`
	Description string `json:"description" gorm:"size:2000"`
	Location    string `json:"location" gorm:"size:255"`
	IsPrivate   bool   `json:"isPrivate" gorm:"index"`
	LogoURL     string `json:"logoUrl" gorm:"size:512"`

	CreatorID uint `json:"createdBy" gorm:"not null;index"`
	Creator   User `json:"-" gorm:"foreignKey:CreatorID"`

	// Legacy coordinate form kept for rows written before the normalized
	// columns existed. New writes only fill GeoLat/GeoLng; the migration
	// step backfills old rows once.
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	PlaceName string   `json:"placeName" gorm:"size:255"`

	GeoLat *float64 `json:"geoLat" gorm:"index:idx_clubs_geo"`
	GeoLng *float64 `json:"geoLng" gorm:"index:idx_clubs_geo"`

	Members      []Member      `json:"members,omitempty" gorm:"foreignKey:ClubID"`
	JoinRequests []JoinRequest `json:"joinRequests,omitempty" gorm:"foreignKey:ClubID"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (c *Club) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewHexID()
	}
	return nil
}

// NewHexID returns a 24-character hex identifier (12 random bytes).
func NewHexID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
