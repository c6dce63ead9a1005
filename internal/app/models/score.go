package models

import "time"

// Score is the per-user additive ledger
type Score struct {
	UID          string    `json:"uid" db:"uid"`
	Total        int       `json:"total" db:"total"`
	CreatedRooms int       `json:"createdRooms" db:"created_rooms"`
	JoinedRooms  int       `json:"joinedRooms" db:"joined_rooms"`
	NoShowCount  int       `json:"noShowCount" db:"no_show_count"`
	ThumbsCount  int       `json:"thumbsCount" db:"thumbs_count"`
	HeartsCount  int       `json:"heartsCount" db:"hearts_count"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// ScoreDelta is added field by field onto a Score
type ScoreDelta struct {
	Total        int
	CreatedRooms int
	JoinedRooms  int
	NoShowCount  int
	ThumbsCount  int
	HeartsCount  int
}

// Apply adds d onto s
func (s *Score) Apply(d ScoreDelta) {
	s.Total += d.Total
	s.CreatedRooms += d.CreatedRooms
	s.JoinedRooms += d.JoinedRooms
	s.NoShowCount += d.NoShowCount
	s.ThumbsCount += d.ThumbsCount
	s.HeartsCount += d.HeartsCount
}

// Reset zeroes every counter
func (s *Score) Reset() {
	s.Total = 0
	s.CreatedRooms = 0
	s.JoinedRooms = 0
	s.NoShowCount = 0
	s.ThumbsCount = 0
	s.HeartsCount = 0
}

// ScoreAudit is an append-only record of an admin score change
type ScoreAudit struct {
	ID        string    `json:"id" db:"id"`
	UID       string    `json:"uid" db:"uid"`
	Delta     int       `json:"delta" db:"delta"`
	Reason    string    `json:"reason" db:"reason"`
	ActorUID  string    `json:"actorUid" db:"actor_uid"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// AuditUIDAll marks audit rows that touched every ledger (resets)
const AuditUIDAll = "*"
