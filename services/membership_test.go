package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rgglenn150/motoclub-connect-backend/models"
)

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedClub(t *testing.T, db *gorm.DB, creator models.User, private bool) models.Club {
	t.Helper()
	club := models.Club{ClubName: "Club " + creator.Email, CreatorID: creator.ID, IsPrivate: private}
	require.NoError(t, db.Create(&club).Error)
	return club
}

func seedMember(t *testing.T, db *gorm.DB, club models.Club, user models.User, roles ...string) models.Member {
	t.Helper()
	member := models.Member{ClubID: club.ID, UserID: user.ID, Roles: models.RolesJSON(roles...)}
	require.NoError(t, db.Create(&member).Error)
	return member
}

func TestVerifyMembership(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	stranger := seedUser(t, db, "stranger@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)

	member, err := VerifyMembership(db, creator.ID, club.ID)
	require.NoError(t, err)
	require.Equal(t, creator.ID, member.UserID)
	require.True(t, member.IsAdmin())

	_, err = VerifyMembership(db, stranger.ID, club.ID)
	require.ErrorIs(t, err, ErrNotAMember)
}

func TestVerifyAdmin(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	seedMember(t, db, club, rider, models.RoleMember)

	_, err := VerifyAdmin(db, creator.ID, club.ID)
	require.NoError(t, err)

	_, err = VerifyAdmin(db, rider.ID, club.ID)
	require.ErrorIs(t, err, ErrNotAdmin)
}

func TestDuplicateMembershipRejected(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)

	dup := models.Member{ClubID: club.ID, UserID: creator.ID, Roles: models.RolesJSON(models.RoleMember)}
	err := db.Create(&dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPendingRequestUniquePerClubAndUser(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, true)

	first := models.JoinRequest{ClubID: club.ID, RequesterID: rider.ID}
	require.NoError(t, db.Create(&first).Error)

	second := models.JoinRequest{ClubID: club.ID, RequesterID: rider.ID}
	require.ErrorIs(t, db.Create(&second).Error, gorm.ErrDuplicatedKey)

	// A resolved request frees the slot for a new one.
	require.NoError(t, db.Model(&first).Update("status", models.JoinRequestRejected).Error)
	third := models.JoinRequest{ClubID: club.ID, RequesterID: rider.ID}
	require.NoError(t, db.Create(&third).Error)
}

func TestPromote(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	target := seedMember(t, db, club, rider, models.RoleMember)

	promoted, err := Promote(db, club.ID, target.ID)
	require.NoError(t, err)
	require.True(t, promoted.IsAdmin())
	require.True(t, promoted.HasRole(models.RoleMember))

	_, err = Promote(db, club.ID, target.ID)
	require.ErrorIs(t, err, ErrAlreadyAdmin)
}

func TestPromoteUnknownMember(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)

	_, err := Promote(db, club.ID, models.NewHexID())
	require.ErrorIs(t, err, ErrMemberNotFound)

	_, err = Promote(db, models.NewHexID(), models.NewHexID())
	require.ErrorIs(t, err, ErrClubNotFound)
}

func TestDemote(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, false)
	admin := seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	second := seedMember(t, db, club, rider, models.RoleMember, models.RoleAdmin)

	demoted, err := Demote(db, club.ID, second.ID, creator.ID)
	require.NoError(t, err)
	require.False(t, demoted.IsAdmin())
	require.True(t, demoted.HasRole(models.RoleMember))

	// Demoting the sole remaining admin must fail whoever asks.
	_, err = Demote(db, club.ID, admin.ID, rider.ID)
	require.ErrorIs(t, err, ErrLastAdmin)
}

func TestDemoteSelf(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, false)
	admin := seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	seedMember(t, db, club, rider, models.RoleMember, models.RoleAdmin)

	_, err := Demote(db, club.ID, admin.ID, creator.ID)
	require.ErrorIs(t, err, ErrSelfDemotion)
}

func TestDemoteNonAdmin(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	plain := seedMember(t, db, club, rider, models.RoleMember)

	_, err := Demote(db, club.ID, plain.ID, creator.ID)
	require.ErrorIs(t, err, ErrNotAdmin)
}

func TestRemoveMember(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, false)
	admin := seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	plain := seedMember(t, db, club, rider, models.RoleMember)

	removed, err := RemoveMember(db, club.ID, plain.ID)
	require.NoError(t, err)
	require.Equal(t, rider.ID, removed.UserID)

	var count int64
	db.Model(&models.Member{}).Where("club_id = ?", club.ID).Count(&count)
	require.EqualValues(t, 1, count)

	// The club's only admin cannot be removed.
	_, err = RemoveMember(db, club.ID, admin.ID)
	require.ErrorIs(t, err, ErrLastAdmin)
}

func TestLeave(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	seedMember(t, db, club, rider, models.RoleMember)

	left, err := Leave(db, club.ID, rider.ID)
	require.NoError(t, err)
	require.Equal(t, rider.ID, left.UserID)

	_, err = Leave(db, club.ID, rider.ID)
	require.ErrorIs(t, err, ErrNotAMember)

	// The sole admin cannot walk away and strand the club.
	_, err = Leave(db, club.ID, creator.ID)
	require.ErrorIs(t, err, ErrLastAdmin)
}

func TestAdminUserIDs(t *testing.T) {
	db := newTestDB(t)
	creator := seedUser(t, db, "creator@example.com")
	rider := seedUser(t, db, "rider@example.com")
	other := seedUser(t, db, "other@example.com")
	club := seedClub(t, db, creator, false)
	seedMember(t, db, club, creator, models.RoleMember, models.RoleAdmin)
	seedMember(t, db, club, rider, models.RoleMember, models.RoleAdmin)
	seedMember(t, db, club, other, models.RoleMember)

	ids := AdminUserIDs(db, club.ID)
	require.ElementsMatch(t, []uint{creator.ID, rider.ID}, ids)
}
