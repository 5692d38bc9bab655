package routes

import (
	"errors"
	"net/http"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/services"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

type joinClubInput struct {
	Message string `json:"message" validate:"max=500"`
}

// JoinClub moves the caller from stranger to member (public clubs) or to
// pending requester (private clubs). The storage-level unique constraints
// back the duplicate checks.
func JoinClub(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")

	var club models.Club
	result := storage.DB.Where("id = ?", clubID).Limit(1).Find(&club)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateNotFound(ctx)
		return
	}

	if _, err := services.VerifyMembership(storage.DB, user.ID, clubID); err == nil {
		utils.CreateError(iris.StatusBadRequest, "Join Error", "Already a member of this club.", ctx)
		return
	} else if !errors.Is(err, services.ErrNotAMember) {
		utils.CreateInternalServerError(ctx)
		return
	}

	var input joinClubInput
	_ = ctx.ReadJSON(&input)

	if !club.IsPrivate {
		membership := models.Member{
			ClubID: club.ID,
			UserID: user.ID,
			Roles:  models.RolesJSON(models.RoleMember),
		}
		if err := storage.DB.Create(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				utils.CreateError(iris.StatusBadRequest, "Join Error", "Already a member of this club.", ctx)
				return
			}
			utils.CreateInternalServerError(ctx)
			return
		}

		services.Notifications.Enqueue(services.Event{
			Type:      models.NotificationNewMember,
			ClubID:    club.ID,
			ClubName:  club.ClubName,
			ActorID:   user.ID,
			ActorName: userDisplayName(user.ID),
		})

		ctx.StatusCode(http.StatusCreated)
		ctx.JSON(iris.Map{"instant": true, "membership": &membership})
		return
	}

	request := models.JoinRequest{
		ClubID:      club.ID,
		RequesterID: user.ID,
		Status:      models.JoinRequestPending,
		Message:     input.Message,
	}
	if err := storage.DB.Create(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.CreateError(iris.StatusBadRequest, "Join Error", "A join request is already pending for this club.", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Notifications.Enqueue(services.Event{
		Type:      models.NotificationJoinRequest,
		ClubID:    club.ID,
		ClubName:  club.ClubName,
		ActorID:   user.ID,
		ActorName: userDisplayName(user.ID),
	})

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"instant": false, "joinRequest": &request})
}

// ListJoinRequests returns a club's pending requests. Admin only.
func ListJoinRequests(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	var requests []models.JoinRequest
	storage.DB.Where("club_id = ? AND status = ?", clubID, models.JoinRequestPending).
		Preload("Requester").
		Order("created_at ASC").
		Find(&requests)

	ctx.JSON(iris.Map{"joinRequests": requests})
}

// ApproveJoinRequest turns a pending request into a membership. Admin only.
// A request that is no longer pending answers 404.
func ApproveJoinRequest(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")
	requestID := ctx.Params().Get("requestID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	request, club, ok := pendingRequest(ctx, clubID, requestID)
	if !ok {
		return
	}

	var membership models.Member
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		// Guard against a membership created between decision and write
		var existing models.Member
		found := tx.Where("club_id = ? AND user_id = ?", clubID, request.RequesterID).
			Limit(1).Find(&existing)
		if found.Error != nil {
			return found.Error
		}
		if found.RowsAffected == 0 {
			membership = models.Member{
				ClubID: clubID,
				UserID: request.RequesterID,
				Roles:  models.RolesJSON(models.RoleMember),
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		} else {
			membership = existing
		}
		return tx.Delete(&models.JoinRequest{}, "id = ?", request.ID).Error
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Notifications.Enqueue(services.Event{
		Type:     models.NotificationRequestApproved,
		ClubID:   clubID,
		ClubName: club.ClubName,
		ActorID:  user.ID,
		TargetID: request.RequesterID,
	})

	utils.Audit(ctx, "join_request.approve", "join_request", requestID, request, &membership)
	ctx.JSON(iris.Map{"success": true, "membership": &membership})
}

// RejectJoinRequest deletes a pending request without creating a membership.
// Admin only.
func RejectJoinRequest(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")
	requestID := ctx.Params().Get("requestID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	request, club, ok := pendingRequest(ctx, clubID, requestID)
	if !ok {
		return
	}

	if err := storage.DB.Delete(&models.JoinRequest{}, "id = ?", request.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.Notifications.Enqueue(services.Event{
		Type:     models.NotificationRequestRejected,
		ClubID:   clubID,
		ClubName: club.ClubName,
		ActorID:  user.ID,
		TargetID: request.RequesterID,
	})

	utils.Audit(ctx, "join_request.reject", "join_request", requestID, request, nil)
	ctx.JSON(iris.Map{"success": true})
}

// pendingRequest loads a request that must still be pending for the club;
// anything else fails the response with 404.
func pendingRequest(ctx iris.Context, clubID, requestID string) (*models.JoinRequest, *models.Club, bool) {
	var request models.JoinRequest
	result := storage.DB.Where("id = ? AND club_id = ?", requestID, clubID).Limit(1).Find(&request)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil, nil, false
	}
	if result.RowsAffected == 0 || request.Status != models.JoinRequestPending {
		utils.CreateNotFound(ctx)
		return nil, nil, false
	}

	var club models.Club
	if err := storage.DB.Select("id, club_name").First(&club, "id = ?", clubID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return nil, nil, false
	}
	return &request, &club, true
}

func userDisplayName(userID uint) string {
	var user models.User
	if err := storage.DB.Select("id, first_name, last_name").First(&user, userID).Error; err != nil {
		return "A rider"
	}
	name := user.FirstName
	if user.LastName != "" {
		if name != "" {
			name += " "
		}
		name += user.LastName
	}
	if name == "" {
		name = "A rider"
	}
	return name
}
