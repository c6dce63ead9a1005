package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/services"
	"github.com/yigit/moim/internal/middleware"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// RoomController handles room related operations
type RoomController struct {
	roomService      services.RoomService
	voteService      services.VoteService
	lifecycleService services.LifecycleService
}

// NewRoomController creates a new RoomController
func NewRoomController(roomService services.RoomService, voteService services.VoteService, lifecycleService services.LifecycleService) *RoomController {
	return &RoomController{
		roomService:      roomService,
		voteService:      voteService,
		lifecycleService: lifecycleService,
	}
}

// ListRooms handles listing rooms by status
// @Summary List rooms
// @Description Lists open rooms ordered by start time, or closed/all rooms newest first. Participants are hidden until the reveal time.
// @Tags rooms
// @Produce json
// @Param status query string false "Room status" Enums(open, closed, all) default(open)
// @Param limit query int false "Maximum number of rooms (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.RoomListResponse} "Rooms retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/list [get]
func (c *RoomController) ListRooms(ctx *gin.Context) {
	response, err := c.roomService.ListRooms(ctx.Request.Context(), ctx.Query("status"), helpers.ParseLimitParam(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// GetRoom handles retrieving a room by id
// @Summary Get room
// @Description Retrieves one room. Participants are included only after the reveal time.
// @Tags rooms
// @Produce json
// @Param id query string true "Room ID"
// @Success 200 {object} dto.APIResponse{data=dto.RoomResponse} "Room retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Missing room id"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/get [get]
func (c *RoomController) GetRoom(ctx *gin.Context) {
	var query dto.RoomQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	response, err := c.roomService.GetRoom(ctx.Request.Context(), query.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// CreateRoom handles room creation
// @Summary Create room
// @Description Creates a meetup room and credits the creator. The creator does not join automatically.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateRoomRequest true "Room details"
// @Success 201 {object} dto.APIResponse{data=dto.CreateRoomResponse} "Room created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/create [post]
func (c *RoomController) CreateRoom(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.CreateRoomRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.roomService.CreateRoom(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(response))
}

// JoinRoom handles joining a room
// @Summary Join room
// @Description Adds the caller to a room. Joining a room twice succeeds without effect.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoomIDRequest true "Room to join"
// @Success 200 {object} dto.APIResponse{data=dto.MembershipResponse} "Membership updated"
// @Failure 400 {object} dto.ErrorResponse "Room closed or ended"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 409 {object} dto.ErrorResponse "Room is full"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/join [post]
func (c *RoomController) JoinRoom(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.RoomIDRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.roomService.JoinRoom(ctx.Request.Context(), uid, request.RoomID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// LeaveRoom handles leaving a room
// @Summary Leave room
// @Description Removes the caller from a room that has not started. Leaving is blocked right after creation.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoomIDRequest true "Room to leave"
// @Success 200 {object} dto.APIResponse{data=dto.MembershipResponse} "Membership updated"
// @Failure 400 {object} dto.ErrorResponse "Room started, closed, locked or caller not a participant"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/leave [post]
func (c *RoomController) LeaveRoom(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.RoomIDRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.roomService.LeaveRoom(ctx.Request.Context(), uid, request.RoomID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// Vote handles a post-meetup vote
// @Summary Vote
// @Description Records the caller's vote for a finished room. Only the first vote counts; later ones succeed without effect.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.VoteRequest true "Vote"
// @Success 200 {object} dto.APIResponse{data=dto.VoteResponse} "Vote accepted"
// @Failure 400 {object} dto.ErrorResponse "Voting window closed or room aborted"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a participant"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/vote [post]
func (c *RoomController) Vote(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.VoteRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.voteService.Vote(ctx.Request.Context(), uid, &request)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// EnsureFresh applies any due time based transition to one room
// @Summary Refresh room state
// @Description Applies the same time based rules as the sweep to a single room and returns it.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoomIDRequest true "Room to refresh"
// @Success 200 {object} dto.APIResponse{data=dto.RoomTransitionResponse} "Room state"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/ensure [post]
func (c *RoomController) EnsureFresh(ctx *gin.Context) {
	var request dto.RoomIDRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	room, transition, err := c.lifecycleService.EnsureFresh(ctx.Request.Context(), request.RoomID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RoomTransitionResponse{
		Room:       dto.NewRoomResponse(room, c.lifecycleService.Revealed(room)),
		Transition: string(transition),
	}))
}

// CloseRoom handles an early close by the creator
// @Summary Close room
// @Description Closes the caller's room now. Before the start this cancels the room; afterwards voting opens.
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoomIDRequest true "Room to close"
// @Success 200 {object} dto.APIResponse{data=dto.RoomTransitionResponse} "Room closed"
// @Failure 400 {object} dto.ErrorResponse "Room already closed"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Caller is not the creator"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /rooms/close [post]
func (c *RoomController) CloseRoom(ctx *gin.Context) {
	uid, ok := requireUID(ctx)
	if !ok {
		return
	}

	var request dto.RoomIDRequest
	if !middleware.BindJSON(ctx, &request) {
		return
	}

	response, err := c.roomService.CloseRoom(ctx.Request.Context(), uid, request.RoomID, false)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
