package models

import (
	"encoding/json"
	"time"

	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Member links a user to a club with a set of roles. "member" is the
// baseline; "admin" is additive. The composite unique index closes the
// duplicate-membership race at the storage layer.
type Member struct {
	ID     string `json:"id" gorm:"type:char(24);primaryKey"`
	ClubID string `json:"club" gorm:"type:char(24);not null;uniqueIndex:idx_members_club_user"`
	Club   Club   `json:"-" gorm:"foreignKey:ClubID"`

	UserID uint `json:"-" gorm:"not null;uniqueIndex:idx_members_club_user"`
	User   User `json:"user" gorm:"foreignKey:UserID"`

	Roles    datatypes.JSON `json:"roles"`
	JoinedAt time.Time      `json:"joinedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = NewHexID()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	return nil
}

// RoleList decodes the Roles column; a row always carries at least "member".
func (m *Member) RoleList() []string {
	var roles []string
	if m.Roles != nil {
		if err := json.Unmarshal(m.Roles, &roles); err != nil {
			roles = nil
		}
	}
	if len(roles) == 0 {
		roles = []string{RoleMember}
	}
	return roles
}

func (m *Member) HasRole(role string) bool {
	return slices.Contains(m.RoleList(), role)
}

func (m *Member) IsAdmin() bool {
	return m.HasRole(RoleAdmin)
}

// RolesJSON builds the Roles column value for the given role tags.
func RolesJSON(roles ...string) datatypes.JSON {
	b, _ := json.Marshal(roles)
	return b
}

func (m *Member) MarshalJSON() ([]byte, error) {
	type Alias Member
	return json.Marshal(&struct {
		Roles []string `json:"roles"`
		*Alias
	}{
		Roles: m.RoleList(),
		Alias: (*Alias)(m),
	})
}
