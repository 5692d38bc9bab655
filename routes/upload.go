package routes

import (
	"fmt"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

type uploadImageInput struct {
	Image  string `json:"image" validate:"required"`
	Folder string `json:"folder"`
}

// UploadImage uploads a base64 image for the caller and returns the
// hosted URL. Used by the app for club logos and event photos before
// the owning record exists.
func UploadImage(ctx iris.Context) {
	user := currentUser(ctx)
	if user == nil {
		return
	}

	var input uploadImageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	folder := input.Folder
	if folder == "" {
		folder = "uploads"
	}

	timestamp := time.Now().UnixNano() / int64(time.Millisecond)
	publicID := fmt.Sprintf("%s/%d/%d", folder, user.ID, timestamp)

	urlMap := storage.UploadBase64Image(input.Image, publicID)
	if urlMap == nil || urlMap["url"] == "" {
		utils.CreateError(iris.StatusBadGateway, "Upload Failed",
			"The image could not be uploaded. Try again later.", ctx)
		return
	}

	ctx.JSON(iris.Map{"url": urlMap["url"]})
}
