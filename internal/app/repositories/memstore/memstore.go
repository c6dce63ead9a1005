// Package memstore is an in-process implementation of repositories.Store.
// It backs the "memory" database driver and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
)

// Store keeps every table in maps guarded by one mutex. Transactions are
// serialized, so RunInTx never has to retry.
type Store struct {
	mu sync.RWMutex

	rooms    map[string]*models.Room
	archive  map[string]*models.Room
	votes    map[voteKey]*models.Vote
	reports  []*models.NoShowReport
	ledger   map[voteKey]*models.NoShowLedger
	scores   map[string]*models.Score
	audits   []*models.ScoreAudit
	users    map[string]*models.User
	admins   map[string]time.Time
	notes    map[string][]*models.Notification
	dedupe   map[voteKey]bool
	tokens   map[string]map[string]time.Time
	feedback map[string]*models.Feedback
}

type voteKey struct {
	a string
	b string
}

var _ repositories.Store = (*Store)(nil)

// New creates an empty Store
func New() *Store {
	return &Store{
		rooms:    map[string]*models.Room{},
		archive:  map[string]*models.Room{},
		votes:    map[voteKey]*models.Vote{},
		ledger:   map[voteKey]*models.NoShowLedger{},
		scores:   map[string]*models.Score{},
		users:    map[string]*models.User{},
		admins:   map[string]time.Time{},
		notes:    map[string][]*models.Notification{},
		dedupe:   map[voteKey]bool{},
		tokens:   map[string]map[string]time.Time{},
		feedback: map[string]*models.Feedback{},
	}
}

// RunInTx runs fn against a staging area and publishes its writes only when fn succeeds
func (s *Store) RunInTx(ctx context.Context, fn repositories.TxFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemTx(s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// GetRoom returns a snapshot of a room
func (s *Store) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return room.Clone(), nil
}

// ListRooms mirrors the ordering of the SQL store
func (s *Store) ListRooms(ctx context.Context, filter repositories.RoomFilter) ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := []*models.Room{}
	for _, r := range s.rooms {
		switch filter.Status {
		case repositories.RoomFilterOpen:
			if r.Closed {
				continue
			}
		case repositories.RoomFilterClosed:
			if !r.Closed {
				continue
			}
		}
		rooms = append(rooms, r.Clone())
	}

	if filter.Status == repositories.RoomFilterOpen {
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].StartAt.Before(rooms[j].StartAt) })
	} else {
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].StartAt.After(rooms[j].StartAt) })
	}

	if filter.Limit > 0 && len(rooms) > filter.Limit {
		rooms = rooms[:filter.Limit]
	}
	return rooms, nil
}

// ListSweepCandidates returns open rooms that started and closed rooms still owing a reminder
func (s *Store) ListSweepCandidates(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := []*models.Room{}
	for _, r := range s.rooms {
		startedOpen := !r.Closed && !r.StartAt.After(now)
		owesReminder := r.Closed && !r.AbortedUnderMin && r.VoteReminderSentAt == nil
		if startedOpen || owesReminder {
			candidates = append(candidates, r)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].StartAt.Before(candidates[j].StartAt) })

	ids := make([]string, 0, len(candidates))
	for _, r := range candidates {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// PurgeClosedRooms drops the oldest limit rooms closed before cutoff along with their votes and reports
func (s *Store) PurgeClosedRooms(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*models.Room
	for _, r := range s.rooms {
		if r.Closed && r.ClosedAt != nil && r.ClosedAt.Before(cutoff) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ClosedAt.Before(*due[j].ClosedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	for _, r := range due {
		s.dropRoomLocked(r.ID)
	}
	return len(due), nil
}

// DeleteRoom removes a room, keeping a copy in the archive when requested
func (s *Store) DeleteRoom(ctx context.Context, id string, archive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if archive {
		s.archive[id] = room.Clone()
	}
	s.dropRoomLocked(id)
	return nil
}

// Archived returns the archived copy of a deleted room
func (s *Store) Archived(id string) (*models.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.archive[id]
	return room.Clone(), ok
}

func (s *Store) dropRoomLocked(id string) {
	delete(s.rooms, id)
	for key := range s.votes {
		if key.a == id {
			delete(s.votes, key)
		}
	}
	kept := s.reports[:0]
	for _, r := range s.reports {
		if r.RoomID != id {
			kept = append(kept, r)
		}
	}
	s.reports = kept
}

// ListNoShowReports lists accusations for a room in arrival order
func (s *Store) ListNoShowReports(ctx context.Context, roomID string) ([]*models.NoShowReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := []*models.NoShowReport{}
	for _, r := range s.reports {
		if r.RoomID == roomID {
			c := *r
			reports = append(reports, &c)
		}
	}
	return reports, nil
}

// GetScore returns the ledger of uid
func (s *Store) GetScore(ctx context.Context, uid string) (*models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[uid]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *score
	return &c, nil
}

// ListTopScores returns the leaderboard, ties broken by uid
func (s *Store) ListTopScores(ctx context.Context, limit int) ([]*models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]*models.Score, 0, len(s.scores))
	for _, score := range s.scores {
		c := *score
		scores = append(scores, &c)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].UID < scores[j].UID
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

// CountScores counts ledgers
func (s *Store) CountScores(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores), nil
}

// ResetScoresBatch zeroes up to limit ledgers with uid greater than afterUID
func (s *Store) ResetScoresBatch(ctx context.Context, afterUID string, limit int) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uids := make([]string, 0, len(s.scores))
	for uid := range s.scores {
		if uid > afterUID {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	if len(uids) > limit {
		uids = uids[:limit]
	}

	lastUID := afterUID
	now := time.Now().UTC()
	for _, uid := range uids {
		s.scores[uid].Reset()
		s.scores[uid].UpdatedAt = now
		lastUID = uid
	}
	return lastUID, len(uids), nil
}

// InsertAudit appends an audit row
func (s *Store) InsertAudit(ctx context.Context, audit *models.ScoreAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendAuditLocked(audit)
	return nil
}

func (s *Store) appendAuditLocked(audit *models.ScoreAudit) {
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	c := *audit
	s.audits = append(s.audits, &c)
}

// ListAudit returns audit rows newest first
func (s *Store) ListAudit(ctx context.Context, limit int) ([]*models.ScoreAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	audits := []*models.ScoreAudit{}
	for i := len(s.audits) - 1; i >= 0; i-- {
		if limit > 0 && len(audits) == limit {
			break
		}
		c := *s.audits[i]
		audits = append(audits, &c)
	}
	return audits, nil
}

// InsertNotifications stores items, skipping (uid, dedupe key) pairs already present
func (s *Store) InsertNotifications(ctx context.Context, items []*models.Notification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, n := range items {
		key := voteKey{a: n.UID, b: n.DedupeKey}
		if s.dedupe[key] {
			continue
		}
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		c := *n
		c.Unread = true
		s.notes[n.UID] = append(s.notes[n.UID], &c)
		s.dedupe[key] = true
		inserted++
	}
	return inserted, nil
}

// ListNotifications returns the newest notifications of uid
func (s *Store) ListNotifications(ctx context.Context, uid string, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.notes[uid]
	items := []*models.Notification{}
	for i := len(list) - 1; i >= 0; i-- {
		if limit > 0 && len(items) == limit {
			break
		}
		c := *list[i]
		items = append(items, &c)
	}
	return items, nil
}

// MarkNotificationsRead marks notifications of uid as read; empty ids marks all
func (s *Store) MarkNotificationsRead(ctx context.Context, uid string, ids []string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}

	marked := 0
	for _, n := range s.notes[uid] {
		if !n.Unread || (len(ids) > 0 && !wanted[n.ID]) {
			continue
		}
		readAt := at
		n.Unread = false
		n.ReadAt = &readAt
		marked++
	}
	return marked, nil
}

// SavePushToken registers a push endpoint
func (s *Store) SavePushToken(ctx context.Context, token *models.PushToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens[token.UID] == nil {
		s.tokens[token.UID] = map[string]time.Time{}
	}
	if _, ok := s.tokens[token.UID][token.Token]; !ok {
		s.tokens[token.UID][token.Token] = token.CreatedAt
	}
	return nil
}

// DeletePushToken removes a push endpoint; an empty uid removes it for everyone
func (s *Store) DeletePushToken(ctx context.Context, uid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for owner, set := range s.tokens {
		if uid != "" && owner != uid {
			continue
		}
		delete(set, token)
	}
	return nil
}

// ListPushTokens returns the endpoints of the given users
func (s *Store) ListPushTokens(ctx context.Context, uids []string) ([]*models.PushToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := []*models.PushToken{}
	for _, uid := range uids {
		tokens = append(tokens, s.tokensOfLocked(uid)...)
	}
	return tokens, nil
}

// ListAllPushTokens returns every registered endpoint
func (s *Store) ListAllPushTokens(ctx context.Context) ([]*models.PushToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uids := make([]string, 0, len(s.tokens))
	for uid := range s.tokens {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	tokens := []*models.PushToken{}
	for _, uid := range uids {
		tokens = append(tokens, s.tokensOfLocked(uid)...)
	}
	return tokens, nil
}

func (s *Store) tokensOfLocked(uid string) []*models.PushToken {
	tokens := []*models.PushToken{}
	for token, created := range s.tokens[uid] {
		tokens = append(tokens, &models.PushToken{UID: uid, Token: token, CreatedAt: created})
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })
	return tokens
}

// IsAdmin checks the admin registry
func (s *Store) IsAdmin(ctx context.Context, uid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.admins[uid]
	return ok, nil
}

// AddAdmin registers uid as admin
func (s *Store) AddAdmin(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[uid]; !ok {
		s.admins[uid] = time.Now().UTC()
	}
	return nil
}

// GetUser returns the profile of uid
func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[uid]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneUser(user), nil
}

// UpsertUser creates or updates the editable profile fields
func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.users[user.UID]
	if !ok {
		existing = &models.User{UID: user.UID, Titles: []string{}, CreatedAt: now}
		s.users[user.UID] = existing
	}
	existing.DisplayName = user.DisplayName
	existing.PhotoURL = user.PhotoURL
	existing.UpdatedAt = now
	return nil
}

// InsertFeedback stores a feedback item
func (s *Store) InsertFeedback(ctx context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	c := *f
	s.feedback[f.ID] = &c
	return nil
}

// ListFeedback lists feedback newest first
func (s *Store) ListFeedback(ctx context.Context, status models.FeedbackStatus, limit int) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []*models.Feedback{}
	for _, f := range s.feedback {
		if status != "" && f.Status != status {
			continue
		}
		c := *f
		items = append(items, &c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// UpdateFeedbackStatus moves a feedback item to status
func (s *Store) UpdateFeedbackStatus(ctx context.Context, id string, status models.FeedbackStatus, note string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feedback[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	f.Status = status
	f.AdminNote = note
	f.UpdatedAt = at
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Titles = append([]string{}, u.Titles...)
	if u.PhotoURL != nil {
		photo := *u.PhotoURL
		c.PhotoURL = &photo
	}
	return &c
}
