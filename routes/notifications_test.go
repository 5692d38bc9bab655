package routes

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
)

func seedNotification(t *testing.T, userID uint) models.Notification {
	t.Helper()
	n := models.Notification{
		UserID:    userID,
		Type:      models.NotificationRoleChange,
		Title:     "Role changed",
		Message:   "You were promoted to admin.",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := storage.DB.Create(&n).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return n
}

func TestMarkNotificationReadStampsReadAt(t *testing.T) {
	app := buildTestApp(t)
	user := createTestUser(t, "reader@example.com")
	n := seedNotification(t, user.ID)

	code, body := doJSON(t, app, http.MethodPatch, "/api/notifications/"+strconv.FormatUint(uint64(n.ID), 10)+"/read", user.ID, nil)
	if code != http.StatusOK {
		t.Fatalf("mark read: expected 200, got %d (%v)", code, body)
	}

	var reloaded models.Notification
	if err := storage.DB.First(&reloaded, n.ID).Error; err != nil {
		t.Fatalf("reload notification: %v", err)
	}
	if !reloaded.IsRead {
		t.Fatalf("expected isRead true")
	}
	if reloaded.ReadAt == nil {
		t.Fatalf("expected readAt to be stamped")
	}
}

func TestMarkNotificationReadOtherUser(t *testing.T) {
	app := buildTestApp(t)
	owner := createTestUser(t, "owner@example.com")
	other := createTestUser(t, "other@example.com")
	n := seedNotification(t, owner.ID)

	code, _ := doJSON(t, app, http.MethodPatch, "/api/notifications/"+strconv.FormatUint(uint64(n.ID), 10)+"/read", other.ID, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 marking someone else's notification, got %d", code)
	}
}
