package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/moim/internal/app/models"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/repositories"
	"github.com/yigit/moim/internal/pkg/apperrors"
	"github.com/yigit/moim/internal/pkg/helpers"
)

// FeedbackService defines the interface for feedback submission and triage
type FeedbackService interface {
	Submit(ctx context.Context, uid string, req *dto.FeedbackRequest) (*models.Feedback, error)
	List(ctx context.Context, status string, limit int) (*dto.FeedbackListResponse, error)
	UpdateStatus(ctx context.Context, adminUID string, req *dto.FeedbackStatusRequest) error
}

// feedbackServiceImpl implements FeedbackService
type feedbackServiceImpl struct {
	store  repositories.Store
	clock  helpers.Clock
	logger zerolog.Logger
}

// NewFeedbackService creates a new FeedbackService
func NewFeedbackService(store repositories.Store, clock helpers.Clock, logger zerolog.Logger) FeedbackService {
	return &feedbackServiceImpl{store: store, clock: clock, logger: logger}
}

// Submit stores a new feedback item in the OPEN state
func (s *feedbackServiceImpl) Submit(ctx context.Context, uid string, req *dto.FeedbackRequest) (*models.Feedback, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperrors.NewBadRequestError("message is required")
	}

	now := s.clock()
	feedback := &models.Feedback{
		UID:       uid,
		Category:  req.Category,
		Message:   message,
		Status:    models.FeedbackOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertFeedback(ctx, feedback); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.Info().Str("feedbackId", feedback.ID).Str("category", feedback.Category).Msg("Feedback submitted")
	return feedback, nil
}

// List returns feedback newest first, optionally narrowed to a status
func (s *feedbackServiceImpl) List(ctx context.Context, status string, limit int) (*dto.FeedbackListResponse, error) {
	filter, err := parseFeedbackStatus(status, true)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListFeedback(ctx, filter, helpers.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return &dto.FeedbackListResponse{Items: items}, nil
}

// UpdateStatus moves a feedback item through triage
func (s *feedbackServiceImpl) UpdateStatus(ctx context.Context, adminUID string, req *dto.FeedbackStatusRequest) error {
	status, err := parseFeedbackStatus(req.Status, false)
	if err != nil {
		return err
	}

	if err := s.store.UpdateFeedbackStatus(ctx, req.ID, status, strings.TrimSpace(req.Note), s.clock()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewResourceNotFoundError("feedback not found")
		}
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	s.logger.Info().Str("feedbackId", req.ID).Str("status", string(status)).Str("admin", adminUID).Msg("Feedback status updated")
	return nil
}

func parseFeedbackStatus(value string, allowEmpty bool) (models.FeedbackStatus, error) {
	status := models.FeedbackStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case models.FeedbackOpen, models.FeedbackInProgress, models.FeedbackResolved:
		return status, nil
	case "":
		if allowEmpty {
			return "", nil
		}
	}
	return "", apperrors.NewBadRequestError("status must be one of: OPEN, IN_PROGRESS, RESOLVED")
}
