package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/services"
	"github.com/yigit/moim/internal/middleware"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// ProfileController handles the caller's own data, feedback and the leaderboard
type ProfileController struct {
	profileService  services.ProfileService
	feedbackService services.FeedbackService
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService services.ProfileService, feedbackService services.FeedbackService) *ProfileController {
	return &ProfileController{
		profileService:  profileService,
		feedbackService: feedbackService,
	}
}

// GetProfile returns the caller's profile
// @Summary Get my profile
// @Description Returns the caller's profile, score ledger and admin flag. The profile is created on first access.
// @Tags me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Profile retrieved"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /me [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	response, err := c.profileService.GetProfile(ctx.Request.Context(), uid, middleware.CurrentName(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// UpdateProfile edits the caller's profile
// @Summary Update my profile
// @Tags me
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Profile updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Router /me/profile [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.UpdateProfileRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.profileService.UpdateProfile(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// ListNotifications returns the caller's inbox
// @Summary List my notifications
// @Tags me
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of items (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.NotificationListResponse} "Notifications"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Router /me/notifications [get]
func (c *ProfileController) ListNotifications(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	response, err := c.profileService.ListNotifications(ctx.Request.Context(), uid, helpers.ParseLimitParam(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// MarkNotificationsRead marks notifications as read
// @Summary Mark notifications read
// @Description Marks the listed notifications as read, or all of them when ids is empty.
// @Tags me
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.MarkReadRequest true "Notification ids"
// @Success 200 {object} dto.APIResponse{data=dto.MarkReadResponse} "Notifications marked"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Router /me/notifications/read [post]
func (c *ProfileController) MarkNotificationsRead(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.MarkReadRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.profileService.MarkNotificationsRead(ctx.Request.Context(), uid, request.IDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// RegisterPushToken stores a push endpoint
// @Summary Register push token
// @Tags me
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PushTokenRequest true "Push token"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Token registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Router /me/push-tokens [post]
func (c *ProfileController) RegisterPushToken(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.PushTokenRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	if err := c.profileService.RegisterPushToken(ctx.Request.Context(), uid, request.Token); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Push token registered"}))
}

// UnregisterPushToken removes a push endpoint
// @Summary Unregister push token
// @Tags me
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PushTokenRequest true "Push token"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Token removed"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Router /me/push-tokens [delete]
func (c *ProfileController) UnregisterPushToken(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.PushTokenRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	if err := c.profileService.UnregisterPushToken(ctx.Request.Context(), uid, request.Token); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Push token removed"}))
}

// SubmitFeedback stores a feedback item
// @Summary Submit feedback
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.FeedbackRequest true "Feedback"
// @Success 201 {object} dto.APIResponse{data=models.Feedback} "Feedback stored"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Router /feedback [post]
func (c *ProfileController) SubmitFeedback(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.FeedbackRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	feedback, err := c.feedbackService.Submit(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(feedback))
}

// Leaderboard returns the top scores
// @Summary Leaderboard
// @Tags scores
// @Produce json
// @Param limit query int false "Maximum number of entries (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.LeaderboardResponse} "Leaderboard"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /scores/leaderboard [get]
func (c *ProfileController) Leaderboard(ctx *gin.Context) {
	response, err := c.profileService.Leaderboard(ctx.Request.Context(), helpers.ParseLimitParam(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
