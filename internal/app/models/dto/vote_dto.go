package dto

// VoteRequest is a post-meetup vote. Every target is optional.
type VoteRequest struct {
	RoomID       string `json:"roomId" binding:"required"`
	ThumbsForUID string `json:"thumbsForUid,omitempty"`
	HeartForUID  string `json:"heartForUid,omitempty"`
	NoShowUID    string `json:"noshowUid,omitempty" example:"none"`
}

// VoteResponse reports whether the vote was recorded now or earlier
type VoteResponse struct {
	RoomID     string `json:"roomId"`
	Recorded   bool   `json:"recorded"`
	RoomClosed bool   `json:"roomClosed"`
}
