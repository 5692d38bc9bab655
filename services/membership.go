package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rgglenn150/motoclub-connect-backend/models"
)

// Membership ledger errors. Handlers translate these into HTTP problems.
var (
	ErrClubNotFound   = errors.New("club not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrNotAMember     = errors.New("user is not a member of this club")
	ErrNotAdmin       = errors.New("member does not have the admin role")
	ErrAlreadyAdmin   = errors.New("member already has the admin role")
	ErrSelfDemotion   = errors.New("admins cannot demote themselves")
	ErrLastAdmin      = errors.New("club must keep at least one admin")
)

// VerifyMembership returns the Member row for (userID, clubID) or
// ErrNotAMember. Pure read.
func VerifyMembership(db *gorm.DB, userID uint, clubID string) (*models.Member, error) {
	var member models.Member
	result := db.Where("club_id = ? AND user_id = ?", clubID, userID).Limit(1).Find(&member)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotAMember
	}
	return &member, nil
}

// VerifyAdmin returns the Member row when the user holds the admin role for
// the club; ErrNotAMember or ErrNotAdmin otherwise. Pure read.
func VerifyAdmin(db *gorm.DB, userID uint, clubID string) (*models.Member, error) {
	member, err := VerifyMembership(db, userID, clubID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, ErrNotAdmin
	}
	return member, nil
}

// RemoveMember deletes a member from a club. Fails with ErrLastAdmin when the
// target is the club's only admin. The club row is locked for the duration of
// the check-then-delete so concurrent removals cannot strand the club.
func RemoveMember(db *gorm.DB, clubID, memberID string) (*models.Member, error) {
	var removed models.Member

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockClub(tx, clubID); err != nil {
			return err
		}

		member, err := findClubMember(tx, clubID, memberID)
		if err != nil {
			return err
		}

		if member.IsAdmin() {
			admins, err := countAdmins(tx, clubID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		removed = *member
		return tx.Delete(&models.Member{}, "id = ?", member.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// Promote appends the admin role to a member.
func Promote(db *gorm.DB, clubID, memberID string) (*models.Member, error) {
	var promoted models.Member

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockClub(tx, clubID); err != nil {
			return err
		}

		member, err := findClubMember(tx, clubID, memberID)
		if err != nil {
			return err
		}
		if member.IsAdmin() {
			return ErrAlreadyAdmin
		}

		member.Roles = models.RolesJSON(models.RoleMember, models.RoleAdmin)
		if err := tx.Model(&models.Member{}).Where("id = ?", member.ID).
			Update("roles", member.Roles).Error; err != nil {
			return err
		}
		promoted = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &promoted, nil
}

// Demote removes the admin role. Self-demotion is refused, as is demoting the
// club's only admin.
func Demote(db *gorm.DB, clubID, memberID string, actingUserID uint) (*models.Member, error) {
	var demoted models.Member

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockClub(tx, clubID); err != nil {
			return err
		}

		member, err := findClubMember(tx, clubID, memberID)
		if err != nil {
			return err
		}
		if !member.IsAdmin() {
			return ErrNotAdmin
		}
		if member.UserID == actingUserID {
			return ErrSelfDemotion
		}

		admins, err := countAdmins(tx, clubID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}

		member.Roles = models.RolesJSON(models.RoleMember)
		if err := tx.Model(&models.Member{}).Where("id = ?", member.ID).
			Update("roles", member.Roles).Error; err != nil {
			return err
		}
		demoted = *member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &demoted, nil
}

// Leave removes the caller's own membership. The last admin cannot leave; the
// club would be stranded without one.
func Leave(db *gorm.DB, clubID string, userID uint) (*models.Member, error) {
	var left models.Member

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockClub(tx, clubID); err != nil {
			return err
		}

		member, err := VerifyMembership(tx, userID, clubID)
		if err != nil {
			return err
		}

		if member.IsAdmin() {
			admins, err := countAdmins(tx, clubID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		left = *member
		return tx.Delete(&models.Member{}, "id = ?", member.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &left, nil
}

// AdminUserIDs returns the user ids of every admin of the club.
func AdminUserIDs(db *gorm.DB, clubID string) []uint {
	var members []models.Member
	if err := db.Where("club_id = ?", clubID).Find(&members).Error; err != nil {
		return nil
	}
	var ids []uint
	for i := range members {
		if members[i].IsAdmin() {
			ids = append(ids, members[i].UserID)
		}
	}
	return ids
}

// lockClub loads the club row under SELECT ... FOR UPDATE so the
// read-then-write invariant checks in the same transaction are serialized
// per club. SQLite (tests) has no row locks; the serial writer covers it.
func lockClub(tx *gorm.DB, clubID string) (*models.Club, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var club models.Club
	result := q.Where("id = ?", clubID).Limit(1).Find(&club)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrClubNotFound
	}
	return &club, nil
}

func findClubMember(tx *gorm.DB, clubID, memberID string) (*models.Member, error) {
	var member models.Member
	result := tx.Where("id = ? AND club_id = ?", memberID, clubID).Limit(1).Find(&member)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrMemberNotFound
	}
	return &member, nil
}

// countAdmins counts members whose role set contains admin. Role sets live in
// a JSON column, so the count happens in-process; clubs are small.
func countAdmins(tx *gorm.DB, clubID string) (int, error) {
	var members []models.Member
	if err := tx.Where("club_id = ?", clubID).Find(&members).Error; err != nil {
		return 0, err
	}
	count := 0
	for i := range members {
		if members[i].IsAdmin() {
			count++
		}
	}
	return count, nil
}
