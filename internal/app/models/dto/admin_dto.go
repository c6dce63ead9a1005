package dto

import "github.com/yigit/moim/internal/app/models"

// NoShowRequest lists participants to penalize for not attending
type NoShowRequest struct {
	RoomID string   `json:"roomId" binding:"required"`
	UIDs   []string `json:"uids" binding:"required,min=1,dive,required"`
}

// NoShowResponse lists the penalized participants
type NoShowResponse struct {
	RoomID  string   `json:"roomId"`
	Applied []string `json:"applied"`
}

// NoShowReportsResponse aggregates accusations for a room
type NoShowReportsResponse struct {
	RoomID  string                 `json:"roomId"`
	Reports []*models.NoShowReport `json:"reports"`
	Tally   map[string]int         `json:"tally"`
}

// ApplyScoreRequest is a manual score correction. Delta must be non-zero.
type ApplyScoreRequest struct {
	UID    string `json:"uid" binding:"required"`
	Delta  int    `json:"delta" binding:"required" example:"-10"`
	Reason string `json:"reason" binding:"required,max=500"`
}

// ResetScoresRequest zeroes every ledger. DryRun only counts; otherwise Confirm must be set.
type ResetScoresRequest struct {
	DryRun  bool   `json:"dryRun"`
	Confirm bool   `json:"confirm"`
	Cursor  string `json:"cursor,omitempty"`
}

// ResetScoresResponse reports reset progress. A non-empty cursor with Complete=false resumes the reset.
type ResetScoresResponse struct {
	DryRun   bool   `json:"dryRun"`
	Affected int    `json:"affected"`
	Reset    int    `json:"reset"`
	Cursor   string `json:"cursor,omitempty"`
	Complete bool   `json:"complete"`
}

// AwardTitlesRequest maps an award category to the uid receiving it
type AwardTitlesRequest struct {
	RoomID string            `json:"roomId" binding:"required"`
	Awards map[string]string `json:"awards" binding:"required,min=1"`
}

// AwardTitlesResponse lists the tags granted per uid and the categories that were skipped
type AwardTitlesResponse struct {
	RoomID  string              `json:"roomId"`
	Granted map[string][]string `json:"granted"`
	Skipped []string            `json:"skipped"`
}

// DeleteRoomRequest removes a room; Archive defaults to true
type DeleteRoomRequest struct {
	RoomID  string `json:"roomId" binding:"required"`
	Archive *bool  `json:"archive,omitempty"`
}

// AuditListResponse lists score audit rows
type AuditListResponse struct {
	Items []*models.ScoreAudit `json:"items"`
}

// NoShowReportsQuery selects the room whose accusations are listed
type NoShowReportsQuery struct {
	RoomID string `form:"roomId" binding:"required"`
}
