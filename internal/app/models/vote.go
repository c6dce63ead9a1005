package models

import "time"

// NoShowNone is the explicit "nobody was absent" answer
const NoShowNone = "none"

// Vote is the completion marker of one participant for one room
type Vote struct {
	RoomID       string    `json:"roomId" db:"room_id"`
	VoterUID     string    `json:"voterUid" db:"voter_uid"`
	ThumbsForUID string    `json:"thumbsForUid,omitempty" db:"thumbs_for_uid"`
	HeartForUID  string    `json:"heartForUid,omitempty" db:"heart_for_uid"`
	NoShowUID    string    `json:"noshowUid,omitempty" db:"noshow_uid"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// NoShowReport is one participant's accusation, aggregated for admins
type NoShowReport struct {
	ID          string    `json:"id" db:"id"`
	RoomID      string    `json:"roomId" db:"room_id"`
	ReporterUID string    `json:"reporterUid" db:"reporter_uid"`
	AccusedUID  string    `json:"accusedUid" db:"accused_uid"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// NoShowLedger guards a (room, uid) penalty against being applied twice
type NoShowLedger struct {
	RoomID    string    `json:"roomId" db:"room_id"`
	UID       string    `json:"uid" db:"uid"`
	AppliedBy string    `json:"appliedBy" db:"applied_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
