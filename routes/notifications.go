package routes

import (
	"encoding/json"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
	"gorm.io/datatypes"
)

// ListNotifications returns the caller's notifications, newest first.
// Expired rows are purged lazily on read.
func ListNotifications(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}

	now := time.Now()
	storage.DB.Where("user_id = ? AND expires_at < ?", user.ID, now).
		Delete(&models.Notification{})

	var notifications []models.Notification
	if err := storage.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(100).
		Find(&notifications).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(notifications)
}

// MarkNotificationRead flags a single notification as read. Only the
// recipient can mark their own notifications.
func MarkNotificationRead(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}

	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Invalid ID", "Notification ID must be a number.", ctx)
		return
	}

	now := time.Now()
	res := storage.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if res.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if res.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(iris.Map{"updated": true})
}

type notificationSettingsInput struct {
	AllowsNotifications *bool `json:"allowsNotifications" validate:"required"`
}

// UpdateNotificationSettings toggles whether push notifications are
// delivered to the caller at all. In-app notifications are unaffected.
func UpdateNotificationSettings(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}

	var input notificationSettingsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := storage.DB.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("allows_notifications", input.AllowsNotifications).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"allowsNotifications": *input.AllowsNotifications})
}

type pushTokenInput struct {
	Token string `json:"token" validate:"required"`
}

// AlterPushToken registers or removes an Expo push token for the
// caller's devices.
func AlterPushToken(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}

	var input pushTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var dbUser models.User
	if err := storage.DB.First(&dbUser, user.ID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var tokens []string
	if dbUser.PushTokens != nil {
		json.Unmarshal(dbUser.PushTokens, &tokens)
	}
	switch ctx.Method() {
	case "POST":
		var exists bool
		for _, t := range tokens {
			if t == input.Token {
				exists = true
				break
			}
		}
		if !exists {
			tokens = append(tokens, input.Token)
		}
	case "DELETE":
		filtered := tokens[:0]
		for _, t := range tokens {
			if t != input.Token {
				filtered = append(filtered, t)
			}
		}
		tokens = filtered
	}

	raw, _ := json.Marshal(tokens)
	if err := storage.DB.Model(&dbUser).
		Update("push_tokens", datatypes.JSON(raw)).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"pushTokens": tokens})
}
