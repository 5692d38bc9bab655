package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rgglenn150/motoclub-connect-backend/models"
)

func TestDispatcherJoinRequestGoesToAdminsOnly(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	coAdmin := seedUser(t, db, "coadmin@example.com")
	rider := seedUser(t, db, "rider@example.com")
	applicant := seedUser(t, db, "applicant@example.com")
	club := seedClub(t, db, admin, true)
	seedMember(t, db, club, admin, models.RoleMember, models.RoleAdmin)
	seedMember(t, db, club, coAdmin, models.RoleMember, models.RoleAdmin)
	seedMember(t, db, club, rider, models.RoleMember)

	d := NewDispatcher(db)
	d.Start()
	d.Enqueue(Event{
		Type:      models.NotificationJoinRequest,
		ClubID:    club.ID,
		ClubName:  club.ClubName,
		ActorID:   applicant.ID,
		ActorName: "Applicant",
	})
	d.Stop()

	var notifications []models.Notification
	require.NoError(t, db.Order("user_id ASC").Find(&notifications).Error)
	require.Len(t, notifications, 2)

	recipients := []uint{notifications[0].UserID, notifications[1].UserID}
	require.ElementsMatch(t, []uint{admin.ID, coAdmin.ID}, recipients)

	first := notifications[0]
	require.Equal(t, models.NotificationJoinRequest, first.Type)
	require.Equal(t, club.ID, first.ClubID)
	require.NotNil(t, first.SenderID)
	require.Equal(t, applicant.ID, *first.SenderID)
	require.Contains(t, first.Message, "Applicant")
	require.True(t, first.ExpiresAt.After(time.Now()))
}

func TestDispatcherActorNeverNotified(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	club := seedClub(t, db, admin, false)
	seedMember(t, db, club, admin, models.RoleMember, models.RoleAdmin)

	d := NewDispatcher(db)
	d.Start()
	// The only admin is also the actor, so nobody is left to tell.
	d.Enqueue(Event{
		Type:     models.NotificationNewMember,
		ClubID:   club.ID,
		ClubName: club.ClubName,
		ActorID:  admin.ID,
	})
	d.Stop()

	var count int64
	db.Model(&models.Notification{}).Count(&count)
	require.Zero(t, count)
}

func TestDispatcherTargetedEvents(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	rider := seedUser(t, db, "rider@example.com")
	club := seedClub(t, db, admin, true)
	seedMember(t, db, club, admin, models.RoleMember, models.RoleAdmin)

	d := NewDispatcher(db)
	d.Start()
	d.Enqueue(Event{
		Type:     models.NotificationRequestApproved,
		ClubID:   club.ID,
		ClubName: club.ClubName,
		ActorID:  admin.ID,
		TargetID: rider.ID,
	})
	d.Enqueue(Event{
		Type:     models.NotificationRoleChange,
		ClubID:   club.ID,
		ClubName: club.ClubName,
		ActorID:  admin.ID,
		TargetID: rider.ID,
		Detail:   "promoted to admin",
	})
	d.Stop()

	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", rider.ID).Order("id ASC").Find(&notifications).Error)
	require.Len(t, notifications, 2)
	require.Equal(t, models.NotificationRequestApproved, notifications[0].Type)
	require.Contains(t, notifications[1].Message, "promoted to admin")
}

func TestDispatcherTTLFromEnv(t *testing.T) {
	t.Setenv("NOTIFICATION_TTL_HOURS", "48")
	d := NewDispatcher(nil)
	require.Equal(t, 48*time.Hour, d.ttl)

	t.Setenv("NOTIFICATION_TTL_HOURS", "not-a-number")
	d = NewDispatcher(nil)
	require.Equal(t, 720*time.Hour, d.ttl)
}

func TestEventTemplates(t *testing.T) {
	e := Event{Type: models.NotificationJoinRequest, ActorName: "Ana", ClubName: "Moto Vortex"}
	title, message := e.template()
	require.Equal(t, "New Join Request", title)
	require.Equal(t, "Ana wants to join Moto Vortex", message)

	e = Event{Type: models.NotificationRequestRejected, ClubName: "Moto Vortex"}
	title, _ = e.template()
	require.Equal(t, "Request Declined", title)
}
