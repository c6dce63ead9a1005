package dto

import "github.com/yigit/moim/internal/app/models"

// ProfileResponse is the caller's profile with their ledger
type ProfileResponse struct {
	User    *models.User  `json:"user"`
	Score   *models.Score `json:"score"`
	IsAdmin bool          `json:"isAdmin"`
}

// UpdateProfileRequest edits the caller's profile
type UpdateProfileRequest struct {
	DisplayName string  `json:"displayName" binding:"required,max=100"`
	PhotoURL    *string `json:"photoUrl,omitempty" binding:"omitempty,url,max=500"`
}

// NotificationListResponse is the caller's inbox
type NotificationListResponse struct {
	Items  []*models.Notification `json:"items"`
	Unread int                    `json:"unread"`
}

// MarkReadRequest marks notifications read; an empty list marks all
type MarkReadRequest struct {
	IDs []string `json:"ids"`
}

// MarkReadResponse reports how many notifications changed
type MarkReadResponse struct {
	Marked int `json:"marked"`
}

// PushTokenRequest registers or removes a push endpoint
type PushTokenRequest struct {
	Token string `json:"token" binding:"required,max=4096"`
}

// LeaderboardResponse lists the top ledgers
type LeaderboardResponse struct {
	Scores []*models.Score `json:"scores"`
}

// FeedbackRequest is a user report
type FeedbackRequest struct {
	Category string `json:"category" binding:"required,oneof=bug idea report other"`
	Message  string `json:"message" binding:"required,max=2000"`
}

// FeedbackStatusRequest moves a feedback item through triage
type FeedbackStatusRequest struct {
	ID     string `json:"id" binding:"required"`
	Status string `json:"status" binding:"required,oneof=OPEN IN_PROGRESS RESOLVED"`
	Note   string `json:"note,omitempty" binding:"max=1000"`
}

// FeedbackListResponse lists feedback items
type FeedbackListResponse struct {
	Items []*models.Feedback `json:"items"`
}
