package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/auth"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// ProfileService defines the interface for the caller's own data and public rankings
type ProfileService interface {
	GetProfile(ctx context.Context, uid, displayName string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, uid string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	ListNotifications(ctx context.Context, uid string, limit int) (*dto.NotificationListResponse, error)
	MarkNotificationsRead(ctx context.Context, uid string, ids []string) (*dto.MarkReadResponse, error)
	RegisterPushToken(ctx context.Context, uid, token string) error
	UnregisterPushToken(ctx context.Context, uid, token string) error
	Leaderboard(ctx context.Context, limit int) (*dto.LeaderboardResponse, error)
}

// profileServiceImpl implements ProfileService
type profileServiceImpl struct {
	store  repositories.Store
	authz  auth.AdminAuthorizer
	clock  helpers.Clock
	logger zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(store repositories.Store, authz auth.AdminAuthorizer, clock helpers.Clock, logger zerolog.Logger) ProfileService {
	return &profileServiceImpl{
		store:  store,
		authz:  authz,
		clock:  clock,
		logger: logger,
	}
}

// GetProfile returns the caller's profile and ledger. A first visit creates the profile from token claims.
func (s *profileServiceImpl) GetProfile(ctx context.Context, uid, displayName string) (*dto.ProfileResponse, error) {
	user, err := s.store.GetUser(ctx, uid)
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := s.store.UpsertUser(ctx, &models.User{UID: uid, DisplayName: displayName}); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		user, err = s.store.GetUser(ctx, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return s.buildProfile(ctx, user)
}

// UpdateProfile edits the display name and photo
func (s *profileServiceImpl) UpdateProfile(ctx context.Context, uid string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, apperrors.NewBadRequestError("displayName is required")
	}

	if err := s.store.UpsertUser(ctx, &models.User{UID: uid, DisplayName: name, PhotoURL: req.PhotoURL}); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return s.buildProfile(ctx, user)
}

func (s *profileServiceImpl) buildProfile(ctx context.Context, user *models.User) (*dto.ProfileResponse, error) {
	score, err := s.store.GetScore(ctx, user.UID)
	if errors.Is(err, apperrors.ErrNotFound) {
		score, err = &models.Score{UID: user.UID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	isAdmin := false
	if s.authz != nil {
		isAdmin, err = s.authz.IsAdmin(ctx, user.UID)
		if err != nil {
			s.logger.Warn().Err(err).Str("uid", user.UID).Msg("Admin lookup failed for profile")
			isAdmin = false
		}
	}

	if user.Titles == nil {
		user.Titles = []string{}
	}
	return &dto.ProfileResponse{User: user, Score: score, IsAdmin: isAdmin}, nil
}

// ListNotifications returns the caller's newest notifications
func (s *profileServiceImpl) ListNotifications(ctx context.Context, uid string, limit int) (*dto.NotificationListResponse, error) {
	items, err := s.store.ListNotifications(ctx, uid, helpers.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	resp := &dto.NotificationListResponse{Items: items}
	for _, n := range items {
		if n.Unread {
			resp.Unread++
		}
	}
	return resp, nil
}

// MarkNotificationsRead marks the caller's notifications as read
func (s *profileServiceImpl) MarkNotificationsRead(ctx context.Context, uid string, ids []string) (*dto.MarkReadResponse, error) {
	marked, err := s.store.MarkNotificationsRead(ctx, uid, uniqueNonEmpty(ids), s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return &dto.MarkReadResponse{Marked: marked}, nil
}

// RegisterPushToken stores a push endpoint for the caller
func (s *profileServiceImpl) RegisterPushToken(ctx context.Context, uid, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.NewBadRequestError("token is required")
	}
	if err := s.store.SavePushToken(ctx, &models.PushToken{UID: uid, Token: token, CreatedAt: s.clock()}); err != nil {
		return fmt.Errorf("failed to save push token: %w", err)
	}
	return nil
}

// UnregisterPushToken forgets one of the caller's push endpoints
func (s *profileServiceImpl) UnregisterPushToken(ctx context.Context, uid, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.NewBadRequestError("token is required")
	}
	if err := s.store.DeletePushToken(ctx, uid, token); err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}
	return nil
}

// Leaderboard returns the highest ledgers
func (s *profileServiceImpl) Leaderboard(ctx context.Context, limit int) (*dto.LeaderboardResponse, error) {
	scores, err := s.store.ListTopScores(ctx, helpers.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return &dto.LeaderboardResponse{Scores: scores}, nil
}
