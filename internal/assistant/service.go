package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/gamification"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

type Repository interface {
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)
	LogUsage(ctx context.Context, u models.AIUsage) error
}

// Service enforces the daily message quota around a Responder. The quota
// day is the UTC calendar day.
type Service struct {
	repo       Repository
	responder  Responder
	dailyLimit int
	log        *logger.Logger
	now        func() time.Time
}

func NewService(repo Repository, responder Responder, dailyLimit int, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		responder:  responder,
		dailyLimit: dailyLimit,
		log:        log.With("service", "assistant"),
		now:        time.Now,
	}
}

func (s *Service) Limit() int {
	return s.dailyLimit
}

func (s *Service) usedToday(ctx context.Context, userID int64, now time.Time) (int, error) {
	used, err := s.repo.CountSince(ctx, userID, gamification.StartOfUTCDay(now))
	if err != nil {
		return 0, apperr.Upstream("Failed to check usage", err)
	}
	return used, nil
}

func (s *Service) Chat(ctx context.Context, userID int64, message string) (*models.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validation("Message is required")
	}

	now := s.now().UTC()
	used, err := s.usedToday(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if used >= s.dailyLimit {
		return nil, apperr.QuotaExceeded("Daily limit reached")
	}

	reply, err := s.responder.Respond(ctx, message)
	if err != nil {
		return nil, apperr.Upstream("Assistant is unavailable", err)
	}

	usage := models.AIUsage{
		UserID:       userID,
		MessageCount: 1,
		TokensUsed:   reply.TokensUsed,
		ModelUsed:    reply.Model,
		CreatedAt:    now,
	}
	if err := s.repo.LogUsage(ctx, usage); err != nil {
		s.log.Error("ai usage logging failed", "user_id", userID, "error", err)
	}

	return &models.ChatResponse{
		Response:  reply.Text,
		Remaining: max(0, s.dailyLimit-used-1),
		Limit:     s.dailyLimit,
	}, nil
}

func (s *Service) Usage(ctx context.Context, userID int64) (*models.UsageResponse, error) {
	now := s.now().UTC()
	used, err := s.usedToday(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return &models.UsageResponse{
		Used:      used,
		Remaining: max(0, s.dailyLimit-used),
		Limit:     s.dailyLimit,
		ResetsAt:  gamification.NextUTCMidnight(now),
	}, nil
}
