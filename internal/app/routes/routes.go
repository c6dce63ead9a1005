package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/moim/internal/app/controllers"
	"github.com/yigit/moim/internal/middleware"
	"github.com/yigit/moim/internal/pkg/auth"
)

// Controllers groups every handler the router mounts
type Controllers struct {
	Room    *controllers.RoomController
	Admin   *controllers.AdminController
	Profile *controllers.ProfileController
	System  *controllers.SystemController
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	ctrl Controllers,
	authMiddleware *middleware.AuthMiddleware,
	cronVerifier *auth.CronSecretVerifier,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	v1.GET("/health", ctrl.System.Health)
	v1.GET("/rooms/list", ctrl.Room.ListRooms)
	v1.GET("/rooms/get", ctrl.Room.GetRoom)
	v1.GET("/scores/leaderboard", ctrl.Profile.Leaderboard)

	// --- Scheduler ---
	v1.POST("/cron/sweep", middleware.CronSecret(cronVerifier), ctrl.System.Sweep)

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	rooms := authenticated.Group("/rooms")
	{
		rooms.POST("/create", ctrl.Room.CreateRoom)
		rooms.POST("/join", ctrl.Room.JoinRoom)
		rooms.POST("/leave", ctrl.Room.LeaveRoom)
		rooms.POST("/vote", ctrl.Room.Vote)
		rooms.POST("/ensure", ctrl.Room.EnsureFresh)
		rooms.POST("/close", ctrl.Room.CloseRoom) // creator only
	}

	me := authenticated.Group("/me")
	{
		me.GET("", ctrl.Profile.GetProfile)
		me.PUT("/profile", ctrl.Profile.UpdateProfile)
		me.GET("/notifications", ctrl.Profile.ListNotifications)
		me.POST("/notifications/read", ctrl.Profile.MarkNotificationsRead)
		me.POST("/push-tokens", ctrl.Profile.RegisterPushToken)
		me.DELETE("/push-tokens", ctrl.Profile.UnregisterPushToken)
	}

	authenticated.POST("/feedback", ctrl.Profile.SubmitFeedback)

	// --- Admin routes ---
	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.AdminRequired())
	{
		adminRooms := admin.Group("/rooms")
		{
			adminRooms.POST("/close", ctrl.Admin.CloseRoom)
			adminRooms.POST("/noshow", ctrl.Admin.ApplyNoShow)
			adminRooms.GET("/noshow-reports", ctrl.Admin.ListNoShowReports)
			adminRooms.POST("/award-titles", ctrl.Admin.AwardTitles)
			adminRooms.POST("/delete", ctrl.Admin.DeleteRoom)
		}

		adminScores := admin.Group("/scores")
		{
			adminScores.POST("/apply", ctrl.Admin.ApplyScore)
			adminScores.POST("/reset", ctrl.Admin.ResetScores)
			adminScores.GET("/audit", ctrl.Admin.ListAudit)
		}

		admin.GET("/feedback", ctrl.Admin.ListFeedback)
		admin.POST("/feedback/status", ctrl.Admin.UpdateFeedbackStatus)
	}
}
