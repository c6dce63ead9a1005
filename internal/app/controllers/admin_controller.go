package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/services"
	"github.com/yigit/moim/internal/middleware"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// AdminController handles moderation endpoints. Every route sits behind AdminRequired.
type AdminController struct {
	adminService    services.AdminService
	roomService     services.RoomService
	feedbackService services.FeedbackService
}

// NewAdminController creates a new AdminController
func NewAdminController(adminService services.AdminService, roomService services.RoomService, feedbackService services.FeedbackService) *AdminController {
	return &AdminController{
		adminService:    adminService,
		roomService:     roomService,
		feedbackService: feedbackService,
	}
}

// CloseRoom closes any room regardless of its creator
// @Summary Close room (admin)
// @Description Closes a room on behalf of its creator.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoomIDRequest true "Room to close"
// @Success 200 {object} dto.APIResponse{data=dto.RoomTransitionResponse} "Room closed"
// @Failure 400 {object} dto.ErrorResponse "Room already closed"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Router /admin/rooms/close [post]
func (c *AdminController) CloseRoom(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.RoomIDRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.roomService.CloseRoom(ctx.Request.Context(), uid, request.RoomID, true)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// ApplyNoShow penalizes absent participants
// @Summary Apply no-show penalty
// @Description Debits each listed participant once per room. Fails as a whole when any uid is not a participant or was already penalized.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.NoShowRequest true "Participants to penalize"
// @Success 200 {object} dto.APIResponse{data=dto.NoShowResponse} "Penalty applied"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 409 {object} dto.ErrorResponse "Penalty already applied"
// @Router /admin/rooms/noshow [post]
func (c *AdminController) ApplyNoShow(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.NoShowRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.adminService.ApplyNoShow(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// ListNoShowReports lists accusations for a room
// @Summary List no-show reports
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param roomId query string true "Room ID"
// @Success 200 {object} dto.APIResponse{data=dto.NoShowReportsResponse} "Reports retrieved"
// @Failure 400 {object} dto.ErrorResponse "Missing room id"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Router /admin/rooms/noshow-reports [get]
func (c *AdminController) ListNoShowReports(ctx *gin.Context) {
	var query dto.NoShowReportsQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	response, err := c.adminService.ListNoShowReports(ctx.Request.Context(), query.RoomID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// AwardTitles grants titles for a finished room
// @Summary Award titles
// @Description Grants category tags to participants of a closed room. Each room can be awarded once.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AwardTitlesRequest true "Awards by category"
// @Success 200 {object} dto.APIResponse{data=dto.AwardTitlesResponse} "Titles granted"
// @Failure 400 {object} dto.ErrorResponse "Room not closed, aborted, or no valid target"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 409 {object} dto.ErrorResponse "Titles already awarded"
// @Router /admin/rooms/award-titles [post]
func (c *AdminController) AwardTitles(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.AwardTitlesRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.adminService.AwardTitles(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// DeleteRoom removes a room
// @Summary Delete room
// @Description Deletes a room and its votes. A snapshot is archived unless archive is false.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.DeleteRoomRequest true "Room to delete"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Room deleted"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Router /admin/rooms/delete [post]
func (c *AdminController) DeleteRoom(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.DeleteRoomRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	if err := c.adminService.DeleteRoom(ctx.Request.Context(), uid, &request); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Room deleted"}))
}

// ApplyScore applies a manual score correction
// @Summary Adjust score
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ApplyScoreRequest true "Correction"
// @Success 200 {object} dto.APIResponse{data=models.Score} "Score adjusted"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Router /admin/scores/apply [post]
func (c *AdminController) ApplyScore(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.ApplyScoreRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	score, err := c.adminService.ApplyScore(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(score))
}

// ResetScores zeroes every ledger
// @Summary Reset scores
// @Description Counts ledgers with dryRun, otherwise requires confirm. An interrupted reset returns its cursor in the error details; send it back to resume.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ResetScoresRequest true "Reset options"
// @Success 200 {object} dto.APIResponse{data=dto.ResetScoresResponse} "Reset result"
// @Failure 400 {object} dto.ErrorResponse "Confirmation missing"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 500 {object} dto.ErrorResponse "Reset interrupted"
// @Router /admin/scores/reset [post]
func (c *AdminController) ResetScores(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.ResetScoresRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.adminService.ResetScores(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// ListAudit lists score audit rows
// @Summary List score audit
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of rows (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.AuditListResponse} "Audit rows"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Router /admin/scores/audit [get]
func (c *AdminController) ListAudit(ctx *gin.Context) {
	response, err := c.adminService.ListAudit(ctx.Request.Context(), helpers.ParseLimitParam(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// ListFeedback lists feedback for triage
// @Summary List feedback
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter" Enums(OPEN, IN_PROGRESS, RESOLVED)
// @Param limit query int false "Maximum number of items (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.FeedbackListResponse} "Feedback items"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Router /admin/feedback [get]
func (c *AdminController) ListFeedback(ctx *gin.Context) {
	response, err := c.feedbackService.List(ctx.Request.Context(), ctx.Query("status"), helpers.ParseLimitParam(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// UpdateFeedbackStatus moves a feedback item through triage
// @Summary Update feedback status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.FeedbackStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Status updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} dto.ErrorResponse "Feedback not found"
// @Router /admin/feedback/status [post]
func (c *AdminController) UpdateFeedbackStatus(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.FeedbackStatusRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	if err := c.feedbackService.UpdateStatus(ctx.Request.Context(), uid, &request); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Feedback updated"}))
}
