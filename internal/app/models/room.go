package models

import (
	"time"
)

// RoomStatus is the coarse state exposed to clients
type RoomStatus string

const (
	RoomStatusOpen    RoomStatus = "OPEN"
	RoomStatusClosed  RoomStatus = "CLOSED"
	RoomStatusAborted RoomStatus = "ABORTED"
)

// Room is one scheduled meetup
type Room struct {
	ID         string `json:"id" db:"id"`
	Title      string `json:"title" db:"title"`
	Location   string `json:"location" db:"location"`
	Content    string `json:"content,omitempty" db:"content"`
	Type       string `json:"type,omitempty" db:"type"`
	ChatURL    string `json:"chatUrl,omitempty" db:"chat_url"`
	CreatorUID string `json:"creatorUid" db:"creator_uid"`

	StartAt       time.Time `json:"startAt" db:"start_at"`
	EndAt         time.Time `json:"endAt" db:"end_at"`
	RevealAt      time.Time `json:"revealAt" db:"reveal_at"`
	JoinLockUntil time.Time `json:"joinLockUntil" db:"join_lock_until"`

	Capacity    int `json:"capacity" db:"capacity"`
	MinCapacity int `json:"minCapacity" db:"min_capacity"`

	Participants      []string `json:"participants" db:"participants"`
	ParticipantsCount int      `json:"participantsCount" db:"participants_count"`

	Closed          bool     `json:"closed" db:"closed"`
	AbortedUnderMin bool     `json:"abortedUnderMin" db:"aborted_under_min"`
	VotingOpen      bool     `json:"votingOpen" db:"voting_open"`
	VoteDoneUIDs    []string `json:"voteDoneUids" db:"vote_done_uids"`

	ClosedAt           *time.Time `json:"closedAt,omitempty" db:"closed_at"`
	AbortedAt          *time.Time `json:"abortedAt,omitempty" db:"aborted_at"`
	VotingOpenedAt     *time.Time `json:"votingOpenedAt,omitempty" db:"voting_opened_at"`
	VoteReminderSentAt *time.Time `json:"voteReminderSentAt,omitempty" db:"vote_reminder_sent_at"`
	VoteCompletedAt    *time.Time `json:"voteCompletedAt,omitempty" db:"vote_completed_at"`
	TitlesAppliedAt    *time.Time `json:"titlesAppliedAt,omitempty" db:"titles_applied_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Version   int64     `json:"-" db:"version"`
}

// Status derives the coarse status from the flags
func (r *Room) Status() RoomStatus {
	switch {
	case r.AbortedUnderMin:
		return RoomStatusAborted
	case r.Closed:
		return RoomStatusClosed
	default:
		return RoomStatusOpen
	}
}

// HasParticipant reports whether uid is a member
func (r *Room) HasParticipant(uid string) bool {
	return containsString(r.Participants, uid)
}

// HasVoted reports whether uid already recorded a vote
func (r *Room) HasVoted(uid string) bool {
	return containsString(r.VoteDoneUIDs, uid)
}

// IsFull reports whether the room reached its capacity
func (r *Room) IsFull() bool {
	return len(r.Participants) >= r.Capacity
}

// AddParticipant appends uid and keeps the denormalized count in sync.
// It returns false when uid was already a member.
func (r *Room) AddParticipant(uid string) bool {
	if r.HasParticipant(uid) {
		return false
	}
	r.Participants = append(r.Participants, uid)
	r.ParticipantsCount = len(r.Participants)
	return true
}

// RemoveParticipant drops uid and keeps the denormalized count in sync.
// It returns false when uid was not a member.
func (r *Room) RemoveParticipant(uid string) bool {
	idx := -1
	for i, p := range r.Participants {
		if p == uid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	r.Participants = append(r.Participants[:idx:idx], r.Participants[idx+1:]...)
	r.ParticipantsCount = len(r.Participants)
	return true
}

// MarkVoted adds uid to the completed voters. The set only grows.
func (r *Room) MarkVoted(uid string) bool {
	if r.HasVoted(uid) {
		return false
	}
	r.VoteDoneUIDs = append(r.VoteDoneUIDs, uid)
	return true
}

// AllVoted reports whether every current participant has voted
func (r *Room) AllVoted() bool {
	if len(r.Participants) == 0 {
		return false
	}
	for _, p := range r.Participants {
		if !r.HasVoted(p) {
			return false
		}
	}
	return true
}

// PendingVoters returns the participants that have not voted yet
func (r *Room) PendingVoters() []string {
	pending := []string{}
	for _, p := range r.Participants {
		if !r.HasVoted(p) {
			pending = append(pending, p)
		}
	}
	return pending
}

// Clone returns a deep copy, used by stores that hand out snapshots
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Participants = append([]string(nil), r.Participants...)
	c.VoteDoneUIDs = append([]string(nil), r.VoteDoneUIDs...)
	c.ClosedAt = cloneTime(r.ClosedAt)
	c.AbortedAt = cloneTime(r.AbortedAt)
	c.VotingOpenedAt = cloneTime(r.VotingOpenedAt)
	c.VoteReminderSentAt = cloneTime(r.VoteReminderSentAt)
	c.VoteCompletedAt = cloneTime(r.VoteCompletedAt)
	c.TitlesAppliedAt = cloneTime(r.TitlesAppliedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
