package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/rgglenn150/motoclub-connect-backend/routes"
	"github.com/rgglenn150/motoclub-connect-backend/services"
	"github.com/rgglenn150/motoclub-connect-backend/storage"
	"github.com/rgglenn150/motoclub-connect-backend/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	db := storage.InitializeDB()
	storage.InitializeRedis()

	dispatcher := services.InitializeNotifications(db)
	defer dispatcher.Stop()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Post("/apple", routes.AppleLoginOrSignUp)
		user.Post("/forgotpassword", routes.ForgotPassword)
		user.Post("/resetpassword", resetTokenVerifierMiddleware, routes.ResetPassword)
		user.Get("/me", accessTokenVerifierMiddleware, routes.GetCurrentUser)
		user.Patch("/profile", accessTokenVerifierMiddleware, routes.UpdateUserProfile)
	}

	club := app.Party("/api/club")
	{
		// Static paths before the {clubID} routes so the router never
		// swallows them as identifiers.
		club.Get("/nearby", routes.GetNearbyClubs)
		club.Get("/mine", accessTokenVerifierMiddleware, routes.ListMyClubs)
		club.Post("/create", accessTokenVerifierMiddleware, routes.CreateClub)
		club.Post("/", accessTokenVerifierMiddleware, routes.CreateClub)

		clubID := utils.RequireHexID("clubID")
		memberID := utils.RequireHexID("clubID", "memberID")
		requestID := utils.RequireHexID("clubID", "requestID")

		club.Get("/{clubID}", clubID, routes.GetClub)
		club.Put("/{clubID}/update", accessTokenVerifierMiddleware, clubID, routes.UpdateClub)
		club.Patch("/{clubID}", accessTokenVerifierMiddleware, clubID, routes.UpdateClub)
		club.Delete("/{clubID}", accessTokenVerifierMiddleware, clubID, routes.DeleteClub)

		club.Post("/{clubID}/join", accessTokenVerifierMiddleware, clubID, routes.JoinClub)
		club.Post("/{clubID}/leave", accessTokenVerifierMiddleware, clubID, routes.LeaveClub)
		club.Get("/{clubID}/membership-status", accessTokenVerifierMiddleware, clubID, routes.GetMembershipStatus)

		club.Get("/{clubID}/members", accessTokenVerifierMiddleware, clubID, routes.ListMembers)
		club.Delete("/{clubID}/members/{memberID}", accessTokenVerifierMiddleware, memberID, routes.RemoveMember)
		club.Post("/{clubID}/members/{memberID}/promote", accessTokenVerifierMiddleware, memberID, routes.PromoteMember)
		club.Post("/{clubID}/members/{memberID}/demote", accessTokenVerifierMiddleware, memberID, routes.DemoteMember)
		// PUT aliases kept for clients built against the earlier role routes.
		club.Put("/{clubID}/members/{memberID}/promote", accessTokenVerifierMiddleware, memberID, routes.PromoteMember)
		club.Put("/{clubID}/members/{memberID}/demote", accessTokenVerifierMiddleware, memberID, routes.DemoteMember)

		club.Get("/{clubID}/join-requests", accessTokenVerifierMiddleware, clubID, routes.ListJoinRequests)
		club.Post("/{clubID}/join-requests/{requestID}/approve", accessTokenVerifierMiddleware, requestID, routes.ApproveJoinRequest)
		club.Post("/{clubID}/join-requests/{requestID}/reject", accessTokenVerifierMiddleware, requestID, routes.RejectJoinRequest)
		// /requests aliases kept for clients built against the shorter path.
		club.Get("/{clubID}/requests", accessTokenVerifierMiddleware, clubID, routes.ListJoinRequests)
		club.Post("/{clubID}/requests/{requestID}/approve", accessTokenVerifierMiddleware, requestID, routes.ApproveJoinRequest)
		club.Post("/{clubID}/requests/{requestID}/reject", accessTokenVerifierMiddleware, requestID, routes.RejectJoinRequest)
	}

	notifications := app.Party("/api/notifications")
	{
		notifications.Get("/", accessTokenVerifierMiddleware, routes.ListNotifications)
		notifications.Patch("/{id:uint}/read", accessTokenVerifierMiddleware, routes.MarkNotificationRead)
		notifications.Put("/settings", accessTokenVerifierMiddleware, routes.UpdateNotificationSettings)
		notifications.Post("/pushtoken", accessTokenVerifierMiddleware, routes.AlterPushToken)
		notifications.Delete("/pushtoken", accessTokenVerifierMiddleware, routes.AlterPushToken)
	}

	app.Post("/api/upload", accessTokenVerifierMiddleware, routes.UploadImage)

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
