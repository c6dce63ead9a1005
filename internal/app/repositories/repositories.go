package repositories

import (
	"context"
	"time"

	"github.com/yigit/moim/internal/app/models"
)

// RoomStatusFilter selects rooms for list views
type RoomStatusFilter string

const (
	RoomFilterOpen   RoomStatusFilter = "open"
	RoomFilterClosed RoomStatusFilter = "closed"
	RoomFilterAll    RoomStatusFilter = "all"
)

// RoomFilter narrows ListRooms
type RoomFilter struct {
	Status RoomStatusFilter
	Limit  int
}

// TxFn is the body of an atomic read-modify-write. It may run more than once,
// so it must not cause side effects outside tx.
type TxFn func(ctx context.Context, tx Tx) error

// Tx is the set of operations available inside a transaction
type Tx interface {
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	InsertRoom(ctx context.Context, room *models.Room) error
	SaveRoom(ctx context.Context, room *models.Room) error

	ApplyScoreDelta(ctx context.Context, uid string, delta models.ScoreDelta) error

	GetVote(ctx context.Context, roomID, voterUID string) (*models.Vote, error)
	InsertVote(ctx context.Context, vote *models.Vote) error
	InsertNoShowReport(ctx context.Context, report *models.NoShowReport) error
	InsertNoShowLedger(ctx context.Context, entry *models.NoShowLedger) error

	GetUser(ctx context.Context, uid string) (*models.User, error)
	SaveUserTitles(ctx context.Context, uid string, titles []string) error

	InsertAudit(ctx context.Context, audit *models.ScoreAudit) error
}

// RoomRepository holds read paths and maintenance operations on rooms
type RoomRepository interface {
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]*models.Room, error)
	// ListSweepCandidates returns ids of rooms that may need a time based transition at now
	ListSweepCandidates(ctx context.Context, now time.Time) ([]string, error)
	// PurgeClosedRooms deletes at most limit rooms closed before cutoff together with their votes
	PurgeClosedRooms(ctx context.Context, cutoff time.Time, limit int) (int, error)
	// DeleteRoom removes a room, copying it to the archive first when archive is set
	DeleteRoom(ctx context.Context, id string, archive bool) error
	ListNoShowReports(ctx context.Context, roomID string) ([]*models.NoShowReport, error)
}

// ScoreRepository holds ledger reads and the batched reset
type ScoreRepository interface {
	GetScore(ctx context.Context, uid string) (*models.Score, error)
	ListTopScores(ctx context.Context, limit int) ([]*models.Score, error)
	CountScores(ctx context.Context) (int, error)
	// ResetScoresBatch zeroes up to limit ledgers with uid > afterUID in one transaction.
	// It returns the last uid touched and how many rows were reset.
	ResetScoresBatch(ctx context.Context, afterUID string, limit int) (string, int, error)
	InsertAudit(ctx context.Context, audit *models.ScoreAudit) error
	ListAudit(ctx context.Context, limit int) ([]*models.ScoreAudit, error)
}

// NotificationRepository stores in-app notifications
type NotificationRepository interface {
	// InsertNotifications skips rows whose (uid, dedupe key) already exists and returns how many were new
	InsertNotifications(ctx context.Context, items []*models.Notification) (int, error)
	ListNotifications(ctx context.Context, uid string, limit int) ([]*models.Notification, error)
	MarkNotificationsRead(ctx context.Context, uid string, ids []string, at time.Time) (int, error)
}

// PushTokenRepository stores push endpoints
type PushTokenRepository interface {
	SavePushToken(ctx context.Context, token *models.PushToken) error
	DeletePushToken(ctx context.Context, uid, token string) error
	ListPushTokens(ctx context.Context, uids []string) ([]*models.PushToken, error)
	ListAllPushTokens(ctx context.Context) ([]*models.PushToken, error)
}

// AdminRepository is the admin registry
type AdminRepository interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
	AddAdmin(ctx context.Context, uid string) error
}

// UserRepository stores profiles
type UserRepository interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
}

// FeedbackRepository stores user feedback for triage
type FeedbackRepository interface {
	InsertFeedback(ctx context.Context, feedback *models.Feedback) error
	ListFeedback(ctx context.Context, status models.FeedbackStatus, limit int) ([]*models.Feedback, error)
	UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus, note string, at time.Time) error
}

// Store is the full persistence capability handed to services
type Store interface {
	RunInTx(ctx context.Context, fn TxFn) error

	RoomRepository
	ScoreRepository
	NotificationRepository
	PushTokenRepository
	AdminRepository
	UserRepository
	FeedbackRepository

	Ping(ctx context.Context) error
}
