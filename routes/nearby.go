package routes

import (
	"errors"
	"strconv"

	"github.com/kataras/iris/v12"
	"github.com/rgglenn150/motoclub-connect-backend/services"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

// GetNearbyClubs returns clubs within a radius of the given point,
// ordered nearest first. The response reports which query strategy
// produced the result so clients can surface degraded accuracy.
func GetNearbyClubs(ctx iris.Context) {
	params := services.NearbyParams{
		RadiusKm: 50,
		Limit:    20,
	}

	var fieldErrors []utils.FieldError

	latStr := ctx.URLParam("latitude")
	lngStr := ctx.URLParam("longitude")
	if latStr == "" || lngStr == "" {
		utils.CreateError(iris.StatusBadRequest, "Missing Coordinates",
			"Query parameters latitude and longitude are required.", ctx)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "latitude", Message: "latitude must be a number"})
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		fieldErrors = append(fieldErrors, utils.FieldError{Field: "longitude", Message: "longitude must be a number"})
	}

	if radiusStr := ctx.URLParam("radius"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			fieldErrors = append(fieldErrors, utils.FieldError{Field: "radius", Message: "radius must be a number"})
		} else {
			params.RadiusKm = radius
		}
	}

	if limitStr := ctx.URLParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			fieldErrors = append(fieldErrors, utils.FieldError{Field: "limit", Message: "limit must be an integer"})
		} else {
			params.Limit = limit
		}
	}

	params.Latitude = lat
	params.Longitude = lng
	params.IncludePrivate = ctx.URLParamBoolDefault("includePrivate", true)

	if len(fieldErrors) == 0 {
		fieldErrors = params.Validate()
	}
	if len(fieldErrors) > 0 {
		utils.CreateFieldErrors(ctx, fieldErrors)
		return
	}

	result, err := services.NearbyClubs(storage.DB, params)
	if err != nil {
		if errors.Is(err, services.ErrQueryTimeout) {
			utils.CreateError(iris.StatusGatewayTimeout, "Query Timeout",
				"The nearby search took too long to complete. Try a smaller radius.", ctx)
			return
		}
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"clubs":       result.Clubs,
		"queryMethod": result.QueryMethod,
	})
}
