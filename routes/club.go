package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"

	"github.com/rgglenn150/motoclub-connect-backend/models"
	"github.com/rgglenn150/motoclub-connect-backend/services"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

type geolocationInput struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	PlaceName string  `json:"placeName" validate:"max=255"`
}

type createClubInput struct {
	Name        string            `json:"name" validate:"required,max=120"`
	Description string            `json:"description" validate:"max=2000"`
	Location    string            `json:"location" validate:"max=255"`
	IsPrivate   bool              `json:"isPrivate"`
	Geolocation *geolocationInput `json:"geolocation"`
}

// CreateClub creates a club and enrolls the creator as its first member with
// the member and admin roles, in one transaction.
func CreateClub(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}

	var input createClubInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Club name is required.", ctx)
		return
	}

	club := models.Club{
		ClubName:    name,
		Description: input.Description,
		Location:    input.Location,
		IsPrivate:   input.IsPrivate,
		CreatorID:   user.ID,
	}
	if input.Geolocation != nil {
		lat := input.Geolocation.Latitude
		lng := input.Geolocation.Longitude
		club.GeoLat = &lat
		club.GeoLng = &lng
		club.PlaceName = input.Geolocation.PlaceName
	}

	var membership models.Member
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&club).Error; err != nil {
			return err
		}
		membership = models.Member{
			ClubID: club.ID,
			UserID: user.ID,
			Roles:  models.RolesJSON(models.RoleMember, models.RoleAdmin),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.CreateConflict(ctx, "A club with this name already exists.")
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"club": club, "membership": &membership})
}

type updateClubInput struct {
	ClubName    *string           `json:"clubName" validate:"omitempty,max=120"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	Location    *string           `json:"location" validate:"omitempty,max=255"`
	IsPrivate   *bool             `json:"isPrivate"`
	Geolocation *geolocationInput `json:"geolocation"`
	Logo        string            `json:"logo"` // base64 image payload
}

// UpdateClub lets an admin change club details and upload a logo.
func UpdateClub(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	var club models.Club
	if err := storage.DB.First(&club, "id = ?", clubID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var input updateClubInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.ClubName != nil {
		name := strings.TrimSpace(*input.ClubName)
		if name == "" {
			utils.CreateError(iris.StatusBadRequest, "Validation Error", "Club name cannot be empty.", ctx)
			return
		}
		updates["club_name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.IsPrivate != nil {
		updates["is_private"] = *input.IsPrivate
	}
	if input.Geolocation != nil {
		updates["geo_lat"] = input.Geolocation.Latitude
		updates["geo_lng"] = input.Geolocation.Longitude
		updates["place_name"] = input.Geolocation.PlaceName
	}
	if input.Logo != "" {
		timestamp := time.Now().UnixNano() / int64(time.Millisecond)
		publicID := fmt.Sprintf("clubs/%s/logo_%d", clubID, timestamp)
		urlMap := storage.UploadBase64Image(input.Logo, publicID)
		if urlMap["url"] == "" {
			utils.CreateError(iris.StatusBadRequest, "Upload Error", "Logo upload failed.", ctx)
			return
		}
		updates["logo_url"] = urlMap["url"]
	}

	if len(updates) > 0 {
		if err := storage.DB.Model(&club).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				utils.CreateConflict(ctx, "A club with this name already exists.")
				return
			}
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	utils.Audit(ctx, "club.update", "club", clubID, nil, updates)
	ctx.JSON(iris.Map{"club": club})
}

// GetClub returns a single club with its member count.
func GetClub(ctx iris.Context) {
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

	var memberCount int64
	storage.DB.Model(&models.Member{}).Where("club_id = ?", club.ID).Count(&memberCount)

	ctx.JSON(iris.Map{"club": club, "memberCount": memberCount})
}

// ListMyClubs returns the clubs the caller belongs to.
func ListMyClubs(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}

	var clubs []models.Club
	storage.DB.
		Joins("JOIN members m ON m.club_id = clubs.id").
		Where("m.user_id = ?", user.ID).
		Find(&clubs)

	ctx.JSON(iris.Map{"clubs": clubs})
}

// DeleteClub removes the club along with its memberships and join requests.
// Admin only.
func DeleteClub(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}
	clubID := ctx.Params().Get("clubID")

	if _, err := services.VerifyAdmin(storage.DB, user.ID, clubID); err != nil {
		handleLedgerError(err, ctx)
		return
	}

	var club models.Club
	if err := storage.DB.First(&club, "id = ?", clubID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Member{}, "club_id = ?", clubID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.JoinRequest{}, "club_id = ?", clubID).Error; err != nil {
			return err
		}
		return tx.Delete(&club).Error
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.Audit(ctx, "club.delete", "club", clubID, club, nil)
	ctx.JSON(iris.Map{"success": true})
}

// currentUser pulls the verified access token off the request, stopping with
// 401 when it is missing.
func currentUser(ctx iris.Context) *utils.AccessToken {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return nil
	}
	return tok.(*utils.AccessToken)
}
