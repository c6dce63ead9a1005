package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

// memTx stages writes on top of the store. Reads see staged rows first.
// The store mutex is held for the whole lifetime of a memTx.
type memTx struct {
	s *Store

	rooms   map[string]*models.Room
	scores  map[string]*models.Score
	votes   map[voteKey]*models.Vote
	ledger  map[voteKey]*models.NoShowLedger
	titles  map[string][]string
	reports []*models.NoShowReport
	audits  []*models.ScoreAudit
}

var _ repositories.Tx = (*memTx)(nil)

func newMemTx(s *Store) *memTx {
	return &memTx{
		s:      s,
		rooms:  map[string]*models.Room{},
		scores: map[string]*models.Score{},
		votes:  map[voteKey]*models.Vote{},
		ledger: map[voteKey]*models.NoShowLedger{},
		titles: map[string][]string{},
	}
}

func (t *memTx) commit() {
	for id, room := range t.rooms {
		t.s.rooms[id] = room
	}
	for uid, score := range t.scores {
		t.s.scores[uid] = score
	}
	for key, vote := range t.votes {
		t.s.votes[key] = vote
	}
	for key, entry := range t.ledger {
		t.s.ledger[key] = entry
	}
	now := time.Now().UTC()
	for uid, titles := range t.titles {
		user, ok := t.s.users[uid]
		if !ok {
			user = &models.User{UID: uid, CreatedAt: now}
			t.s.users[uid] = user
		}
		user.Titles = titles
		user.UpdatedAt = now
	}
	t.s.reports = append(t.s.reports, t.reports...)
	for _, audit := range t.audits {
		t.s.appendAuditLocked(audit)
	}
}

func (t *memTx) currentRoom(id string) (*models.Room, bool) {
	if room, ok := t.rooms[id]; ok {
		return room, true
	}
	room, ok := t.s.rooms[id]
	return room, ok
}

func (t *memTx) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, ok := t.currentRoom(id)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return room.Clone(), nil
}

func (t *memTx) InsertRoom(ctx context.Context, room *models.Room) error {
	if _, exists := t.currentRoom(room.ID); exists {
		return apperrors.ErrDuplicate
	}
	room.Version = 1
	room.ParticipantsCount = len(room.Participants)
	t.rooms[room.ID] = room.Clone()
	return nil
}

func (t *memTx) SaveRoom(ctx context.Context, room *models.Room) error {
	current, ok := t.currentRoom(room.ID)
	if !ok {
		return apperrors.ErrNotFound
	}
	if current.Version != room.Version {
		return fmt.Errorf("room %s changed concurrently: %w", room.ID, apperrors.ErrConflict)
	}
	room.Version++
	room.ParticipantsCount = len(room.Participants)
	t.rooms[room.ID] = room.Clone()
	return nil
}

func (t *memTx) ApplyScoreDelta(ctx context.Context, uid string, delta models.ScoreDelta) error {
	score, ok := t.scores[uid]
	if !ok {
		if existing, found := t.s.scores[uid]; found {
			c := *existing
			score = &c
		} else {
			score = &models.Score{UID: uid}
		}
		t.scores[uid] = score
	}
	score.Apply(delta)
	score.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTx) GetVote(ctx context.Context, roomID, voterUID string) (*models.Vote, error) {
	key := voteKey{a: roomID, b: voterUID}
	vote, ok := t.votes[key]
	if !ok {
		vote, ok = t.s.votes[key]
	}
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *vote
	return &c, nil
}

func (t *memTx) InsertVote(ctx context.Context, vote *models.Vote) error {
	if _, err := t.GetVote(ctx, vote.RoomID, vote.VoterUID); err == nil {
		return apperrors.ErrDuplicate
	}
	c := *vote
	t.votes[voteKey{a: vote.RoomID, b: vote.VoterUID}] = &c
	return nil
}

func (t *memTx) InsertNoShowReport(ctx context.Context, report *models.NoShowReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	c := *report
	t.reports = append(t.reports, &c)
	return nil
}

func (t *memTx) InsertNoShowLedger(ctx context.Context, entry *models.NoShowLedger) error {
	key := voteKey{a: entry.RoomID, b: entry.UID}
	if _, ok := t.ledger[key]; ok {
		return apperrors.ErrDuplicate
	}
	if _, ok := t.s.ledger[key]; ok {
		return apperrors.ErrDuplicate
	}
	c := *entry
	t.ledger[key] = &c
	return nil
}

func (t *memTx) GetUser(ctx context.Context, uid string) (*models.User, error) {
	user, ok := t.s.users[uid]
	if !ok {
		if titles, staged := t.titles[uid]; staged {
			return &models.User{UID: uid, Titles: append([]string{}, titles...)}, nil
		}
		return nil, apperrors.ErrNotFound
	}
	c := cloneUser(user)
	if titles, staged := t.titles[uid]; staged {
		c.Titles = append([]string{}, titles...)
	}
	return c, nil
}

func (t *memTx) SaveUserTitles(ctx context.Context, uid string, titles []string) error {
	t.titles[uid] = append([]string{}, titles...)
	return nil
}

func (t *memTx) InsertAudit(ctx context.Context, audit *models.ScoreAudit) error {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	c := *audit
	t.audits = append(t.audits, &c)
	return nil
}
