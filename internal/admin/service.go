package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/cache"
	"github.com/codebro/backend/internal/gamification"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type Repository interface {
	Stats(ctx context.Context, recentSince, todayStart, activeSince time.Time) (*models.AdminStats, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error)
	DeleteUser(ctx context.Context, userID int64) error
}

type Service struct {
	repo  Repository
	cache cache.Cache
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log.With("service", "admin"), now: time.Now}
}

func (s *Service) Stats(ctx context.Context) (*models.AdminStatsResponse, error) {
	now := s.now().UTC()
	st, err := s.repo.Stats(ctx,
		now.AddDate(0, 0, -7),
		gamification.StartOfUTCDay(now),
		now.Add(-24*time.Hour),
	)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch stats", err)
	}
	return &models.AdminStatsResponse{Stats: *st}, nil
}

func (s *Service) ListUsers(ctx context.Context, page, limit int) (*models.AdminUsersResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	users, total, err := s.repo.ListUsers(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch users", err)
	}

	out := make([]models.AdminUser, len(users))
	for i, u := range users {
		out[i] = models.AdminUser{
			User:  u,
			Level: gamification.LevelOf(gamification.ClampPoints(u.Points)).Level,
		}
	}
	return &models.AdminUsersResponse{
		Users:      out,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *Service) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return apperr.Validation("Admins cannot delete their own account")
	}

	err := s.repo.DeleteUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return apperr.NotFound("User")
	}
	if err != nil {
		return apperr.Upstream("Failed to delete user", err)
	}
	s.log.Info("user deleted", "actor_id", actorID, "user_id", userID)

	if s.cache != nil {
		if err := s.cache.DeletePrefix(ctx, cache.LeaderboardPrefix); err != nil {
			s.log.Warn("leaderboard cache invalidation failed", "error", err)
		}
		keys := []string{
			fmt.Sprintf("%s%d", cache.ProfilePrefix, userID),
			fmt.Sprintf("%s%d", cache.StatsPrefix, userID),
		}
		if err := s.cache.Delete(ctx, keys...); err != nil {
			s.log.Warn("user cache invalidation failed", "user_id", userID, "error", err)
		}
	}
	return nil
}
