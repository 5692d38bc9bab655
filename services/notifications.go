package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

// Event is one membership transition worth notifying about. Handlers enqueue
// events and move on; delivery happens on the dispatcher's worker and can
// never fail the operation that produced it.
type Event struct {
	Type      string
	ClubID    string
	ClubName  string
	ActorID   uint
	ActorName string
	// TargetID is the recipient for targeted types (the requester on
	// approve/reject, the member on role_change).
	TargetID uint
	// Detail carries the role_change direction ("promoted"/"demoted").
	Detail string
}

type Dispatcher struct {
	db     *gorm.DB
	events chan Event
	done   chan struct{}
	ttl    time.Duration
}

// Notifications is the process-wide dispatcher, set by InitializeNotifications.
var Notifications *Dispatcher

func InitializeNotifications(db *gorm.DB) *Dispatcher {
	Notifications = NewDispatcher(db)
	Notifications.Start()
	return Notifications
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	ttl := 720 * time.Hour
	if v := os.Getenv("NOTIFICATION_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Hour
		}
	}
	return &Dispatcher{
		db:     db,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
		ttl:    ttl,
	}
}

func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for event := range d.events {
			d.deliver(event)
		}
	}()
}

// Stop drains the queue and waits for the worker to finish.
func (d *Dispatcher) Stop() {
	close(d.events)
	<-d.done
}

// Enqueue hands an event to the worker without blocking. A full queue drops
// the event; notifications are best-effort by contract.
func (d *Dispatcher) Enqueue(e Event) {
	select {
	case d.events <- e:
	default:
		log.Printf("notification queue full, dropping %s event for club %s", e.Type, e.ClubID)
	}
}

func (d *Dispatcher) deliver(e Event) {
	title, message := e.template()
	payload, _ := json.Marshal(map[string]string{
		"type":   e.Type,
		"clubId": e.ClubID,
	})

	senderID := e.ActorID
	for _, userID := range d.recipients(e) {
		notification := models.Notification{
			UserID:    userID,
			SenderID:  &senderID,
			ClubID:    e.ClubID,
			Type:      e.Type,
			Title:     title,
			Message:   message,
			Payload:   payload,
			ExpiresAt: time.Now().Add(d.ttl),
		}
		if err := d.db.Create(&notification).Error; err != nil {
			log.Printf("failed to persist %s notification for user %d: %v", e.Type, userID, err)
			continue
		}

		d.push(userID, title, message, map[string]string{
			"type":   e.Type,
			"clubId": e.ClubID,
		})
	}
}

// recipients computes who gets told about the event. Admin-facing events go
// to every club admin except the actor; targeted events go to the target.
func (d *Dispatcher) recipients(e Event) []uint {
	switch e.Type {
	case models.NotificationJoinRequest, models.NotificationNewMember:
		var ids []uint
		for _, id := range AdminUserIDs(d.db, e.ClubID) {
			if id != e.ActorID {
				ids = append(ids, id)
			}
		}
		return ids
	case models.NotificationRequestApproved, models.NotificationRequestRejected, models.NotificationRoleChange:
		if e.TargetID == 0 {
			return nil
		}
		return []uint{e.TargetID}
	default:
		return nil
	}
}

func (e Event) template() (title, message string) {
	switch e.Type {
	case models.NotificationJoinRequest:
		return "New Join Request", fmt.Sprintf("%s wants to join %s", e.ActorName, e.ClubName)
	case models.NotificationRequestApproved:
		return "Request Approved", fmt.Sprintf("Your request to join %s has been approved", e.ClubName)
	case models.NotificationRequestRejected:
		return "Request Declined", fmt.Sprintf("Your request to join %s was declined", e.ClubName)
	case models.NotificationNewMember:
		return "New Member", fmt.Sprintf("%s joined %s", e.ActorName, e.ClubName)
	case models.NotificationRoleChange:
		return "Role Updated", fmt.Sprintf("You were %s in %s", e.Detail, e.ClubName)
	default:
		return "Club Update", e.ClubName
	}
}

// push sends best-effort Expo pushes to every registered token of the user.
// All failures are logged and swallowed.
func (d *Dispatcher) push(userID uint, title, body string, data map[string]string) {
	var user models.User
	if err := d.db.First(&user, userID).Error; err != nil {
		log.Printf("push skipped, user %d not found: %v", userID, err)
		return
	}
	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		log.Printf("push skipped, bad token list for user %d: %v", userID, err)
		return
	}

	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, data); err != nil {
			log.Printf("failed to push to token %s: %v", token, err)
		}
	}
}
