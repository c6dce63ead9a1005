package services

import (
	"context"
	"time"

	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/notify"
)

// Services defined in this package:
// - RoomService: room creation, membership, close and read paths
// - LifecycleService: time driven transitions (sweep and single room refresh)
// - VoteService: post-meetup voting
// - AdminService: no-show adjudication, score correction, awards, room removal
// - ProfileService: profile, inbox, push endpoints, leaderboard
// - FeedbackService: feedback submission and triage

// RoomSettings holds the timing rules of rooms
type RoomSettings struct {
	DefaultDuration time.Duration
	VoteWindow      time.Duration
	JoinLock        time.Duration
	RevealLead      time.Duration
}

// DefaultRoomSettings returns the production timing rules
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		DefaultDuration: 2 * time.Hour,
		VoteWindow:      24 * time.Hour,
		JoinLock:        10 * time.Minute,
		RevealLead:      time.Hour,
	}
}

// Room capacity bounds
const (
	MinRoomCapacity = 2
	MaxRoomCapacity = 100
)

// ResetBatchSize bounds how many ledgers one reset transaction touches
const ResetBatchSize = 400

// PurgeBatchSize bounds how many rooms one purge statement deletes
const PurgeBatchSize = 400

// Notifier delivers lifecycle events. notify.Dispatcher is the production implementation.
type Notifier interface {
	NotifyUsers(ctx context.Context, uids []string, ev notify.Event) notify.Report
	Broadcast(ctx context.Context, ev notify.Event) notify.Report
	SubscribeRoom(ctx context.Context, uid, roomID string)
	UnsubscribeRoom(ctx context.Context, uid, roomID string)
}

// Score deltas
const (
	scoreCreateRoom      = 30
	scoreLargeRoomBonus  = 10
	largeRoomCapacity    = 8
	scoreJoinRoom        = 5
	scoreNoShowPenalty   = -20
	scorePeerRecognition = 1
)

func createRoomDelta(capacity int) models.ScoreDelta {
	d := models.ScoreDelta{Total: scoreCreateRoom, CreatedRooms: 1}
	if capacity >= largeRoomCapacity {
		d.Total += scoreLargeRoomBonus
	}
	return d
}

func joinRoomDelta() models.ScoreDelta {
	return models.ScoreDelta{Total: scoreJoinRoom, JoinedRooms: 1}
}

func leaveRoomDelta() models.ScoreDelta {
	return models.ScoreDelta{Total: -scoreJoinRoom, JoinedRooms: -1}
}

func noShowDelta() models.ScoreDelta {
	return models.ScoreDelta{Total: scoreNoShowPenalty, NoShowCount: 1}
}

func thumbsDelta() models.ScoreDelta {
	return models.ScoreDelta{Total: scorePeerRecognition, ThumbsCount: 1}
}

func heartDelta() models.ScoreDelta {
	return models.ScoreDelta{Total: scorePeerRecognition, HeartsCount: 1}
}

func roomURL(roomID string) string {
	return "/rooms/" + roomID
}

func timePtr(t time.Time) *time.Time {
	return &t
}
