package utils

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// GetUserID extracts the authenticated user id from the verified access
// token, or 0 when the request carries no valid token.
func GetUserID(ctx iris.Context) uint {
	tok := jwt.Get(ctx)
	if tok == nil {
		return 0
	}
	claims, ok := tok.(*AccessToken)
	if !ok {
		return 0
	}
	return claims.ID
}

// RequireHexID validates that the named path parameters are 24-character hex
// identifiers before any handler touches the database.
func RequireHexID(params ...string) iris.Handler {
	return func(ctx iris.Context) {
		for _, p := range params {
			if !IsHexID(ctx.Params().Get(p)) {
				CreateError(iris.StatusBadRequest, "Validation Error", "Malformed identifier: "+p, ctx)
				return
			}
		}
		ctx.Next()
	}
}
