package dto

import (
	"time"

	"github.com/yigit/moim/internal/app/models"
)

// CreateRoomRequest represents a request to create a room
type CreateRoomRequest struct {
	Title       string `json:"title" binding:"required,notblank,max=200" example:"Board game night"`
	Location    string `json:"location" binding:"required,notblank,max=200" example:"Student center, room 3"`
	StartAt     string `json:"startAt" binding:"required,rfc3339" example:"2026-05-01T18:00:00Z"`
	EndAt       string `json:"endAt,omitempty" binding:"omitempty,rfc3339" example:"2026-05-01T21:00:00Z"`
	Capacity    int    `json:"capacity" binding:"required,min=2,max=100" example:"8"`
	MinCapacity int    `json:"minCapacity,omitempty" binding:"min=0,max=100" example:"3"`
	Content     string `json:"content,omitempty" binding:"max=2000"`
	Type        string `json:"type,omitempty" binding:"max=50" example:"games"`
	ChatURL     string `json:"chatUrl,omitempty" binding:"omitempty,url,max=500"`
}

// CreateRoomResponse carries the id of the new room
type CreateRoomResponse struct {
	ID string `json:"id" example:"6f1c2a54-2b7e-4b4e-9d7a-0c1f1c7f3c11"`
}

// RoomIDRequest addresses a room in a request body
type RoomIDRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// RoomResponse is the public view of a room
type RoomResponse struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Location            string            `json:"location"`
	Content             string            `json:"content,omitempty"`
	Type                string            `json:"type,omitempty"`
	ChatURL             string            `json:"chatUrl,omitempty"`
	CreatorUID          string            `json:"creatorUid"`
	StartAt             time.Time         `json:"startAt"`
	EndAt               time.Time         `json:"endAt"`
	RevealAt            time.Time         `json:"revealAt"`
	JoinLockUntil       time.Time         `json:"joinLockUntil"`
	Capacity            int               `json:"capacity"`
	MinCapacity         int               `json:"minCapacity"`
	ParticipantsCount   int               `json:"participantsCount"`
	Participants        []string          `json:"participants,omitempty"`
	ParticipantsVisible bool              `json:"participantsVisible"`
	Status              models.RoomStatus `json:"status" enums:"OPEN,CLOSED,ABORTED"`
	Closed              bool              `json:"closed"`
	AbortedUnderMin     bool              `json:"abortedUnderMin"`
	VotingOpen          bool              `json:"votingOpen"`
	VoteCount           int               `json:"voteCount"`
	ClosedAt            *time.Time        `json:"closedAt,omitempty"`
	VoteCompletedAt     *time.Time        `json:"voteCompletedAt,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
}

// NewRoomResponse builds the public view; participants are included only when revealed
func NewRoomResponse(room *models.Room, revealed bool) RoomResponse {
	resp := RoomResponse{
		ID:                  room.ID,
		Title:               room.Title,
		Location:            room.Location,
		Content:             room.Content,
		Type:                room.Type,
		ChatURL:             room.ChatURL,
		CreatorUID:          room.CreatorUID,
		StartAt:             room.StartAt,
		EndAt:               room.EndAt,
		RevealAt:            room.RevealAt,
		JoinLockUntil:       room.JoinLockUntil,
		Capacity:            room.Capacity,
		MinCapacity:         room.MinCapacity,
		ParticipantsCount:   room.ParticipantsCount,
		ParticipantsVisible: revealed,
		Status:              room.Status(),
		Closed:              room.Closed,
		AbortedUnderMin:     room.AbortedUnderMin,
		VotingOpen:          room.VotingOpen,
		VoteCount:           len(room.VoteDoneUIDs),
		ClosedAt:            room.ClosedAt,
		VoteCompletedAt:     room.VoteCompletedAt,
		CreatedAt:           room.CreatedAt,
	}
	if revealed {
		resp.Participants = append([]string{}, room.Participants...)
	}
	return resp
}

// RoomListResponse is a page of rooms
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Count int            `json:"count"`
}

// MembershipResponse reports the outcome of a join or leave
type MembershipResponse struct {
	RoomID            string `json:"roomId"`
	Changed           bool   `json:"changed"`
	ParticipantsCount int    `json:"participantsCount"`
}

// RoomTransitionResponse reports a room after a lifecycle check or close
type RoomTransitionResponse struct {
	Room       RoomResponse `json:"room"`
	Transition string       `json:"transition,omitempty" enums:"ABORTED,CLOSED,REMINDED,CANCELLED"`
}

// SweepReport summarizes one sweep pass
type SweepReport struct {
	Scanned  int `json:"scanned"`
	Aborted  int `json:"aborted"`
	Closed   int `json:"closed"`
	Reminded int `json:"reminded"`
	Purged   int `json:"purged"`
	Failed   int `json:"failed"`
}

// RoomQuery addresses a room in the query string
type RoomQuery struct {
	ID string `form:"id" binding:"required"`
}
