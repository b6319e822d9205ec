package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/cache"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

type Repository interface {
	ListLessons(ctx context.Context, f models.LessonFilter) ([]models.Lesson, error)
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
	LessonProgress(ctx context.Context, userID int64, lessonIDs []int64) (map[int64]models.LessonProgress, error)
	StartLesson(ctx context.Context, userID, lessonID int64, at time.Time) error
	ListChallenges(ctx context.Context, f models.ChallengeFilter) ([]models.Challenge, error)
	ChallengeProgress(ctx context.Context, userID int64, challengeIDs []int64) (map[int64]models.ChallengeProgress, error)
}

// Service serves the lesson and challenge catalog. Lists are cached per
// filter; the caller's progress is merged on every request.
type Service struct {
	repo  Repository
	cache cache.Cache
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log.With("service", "catalog"), now: time.Now}
}

func (s *Service) ListLessons(ctx context.Context, userID int64, f models.LessonFilter) (*models.LessonsResponse, error) {
	key := fmt.Sprintf("%s%s:%s:%s", cache.LessonsPrefix, f.Language, f.Level, f.Category)
	lessons, err := cache.Fetch(ctx, s.cache, key, cache.LessonsTTL, func(ctx context.Context) ([]models.Lesson, error) {
		return s.repo.ListLessons(ctx, f)
	})
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch lessons", err)
	}

	ids := make([]int64, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	progress, err := s.repo.LessonProgress(ctx, userID, ids)
	if err != nil {
		// The catalog is still useful without progress badges.
		s.log.Warn("lesson progress lookup failed", "user_id", userID, "error", err)
		progress = nil
	}

	out := make([]models.LessonWithProgress, len(lessons))
	for i, l := range lessons {
		out[i] = models.LessonWithProgress{Lesson: l}
		if p, ok := progress[l.ID]; ok {
			p := p
			out[i].Progress = &p
		}
	}
	return &models.LessonsResponse{Lessons: out}, nil
}

func (s *Service) GetLesson(ctx context.Context, userID, lessonID int64) (*models.LessonResponse, error) {
	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if errors.Is(err, ErrLessonNotFound) {
		return nil, apperr.NotFound("Lesson")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch lesson", err)
	}

	resp := &models.LessonResponse{Lesson: models.LessonWithProgress{Lesson: *lesson}}
	progress, err := s.repo.LessonProgress(ctx, userID, []int64{lessonID})
	if err != nil {
		s.log.Warn("lesson progress lookup failed", "user_id", userID, "lesson_id", lessonID, "error", err)
		return resp, nil
	}
	if p, ok := progress[lessonID]; ok {
		resp.Lesson.Progress = &p
	}
	return resp, nil
}

func (s *Service) StartLesson(ctx context.Context, userID, lessonID int64) error {
	if _, err := s.repo.GetLesson(ctx, lessonID); err != nil {
		if errors.Is(err, ErrLessonNotFound) {
			return apperr.NotFound("Lesson")
		}
		return apperr.Upstream("Failed to start lesson", err)
	}
	if err := s.repo.StartLesson(ctx, userID, lessonID, s.now().UTC()); err != nil {
		return apperr.Upstream("Failed to start lesson", err)
	}
	return nil
}

func (s *Service) ListChallenges(ctx context.Context, userID int64, f models.ChallengeFilter) (*models.ChallengesResponse, error) {
	key := fmt.Sprintf("%s%s:%s", cache.ChallengesPrefix, f.Language, f.Difficulty)
	challenges, err := cache.Fetch(ctx, s.cache, key, cache.ChallengesTTL, func(ctx context.Context) ([]models.Challenge, error) {
		return s.repo.ListChallenges(ctx, f)
	})
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch challenges", err)
	}

	ids := make([]int64, len(challenges))
	for i, c := range challenges {
		ids[i] = c.ID
	}
	progress, err := s.repo.ChallengeProgress(ctx, userID, ids)
	if err != nil {
		s.log.Warn("challenge progress lookup failed", "user_id", userID, "error", err)
		progress = nil
	}

	out := make([]models.ChallengeWithProgress, len(challenges))
	for i, c := range challenges {
		out[i] = models.ChallengeWithProgress{Challenge: c}
		if p, ok := progress[c.ID]; ok {
			p := p
			out[i].Progress = &p
		}
	}
	return &models.ChallengesResponse{Challenges: out}, nil
}
