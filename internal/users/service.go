package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/cache"
	"github.com/codebro/backend/internal/gamification"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

const searchLimit = 20

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

type Repository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	RecentLessons(ctx context.Context, userID int64) ([]models.LessonActivity, error)
	RecentChallenges(ctx context.Context, userID int64) ([]models.ChallengeActivity, error)
	CountAchievements(ctx context.Context, userID int64) (int, error)
	UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest, at time.Time) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.UserSearchResult, error)
}

type Service struct {
	repo  Repository
	cache cache.Cache
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log.With("service", "users"), now: time.Now}
}

func profileKey(userID int64) string {
	return fmt.Sprintf("%s%d", cache.ProfilePrefix, userID)
}

// ── Profile ─────────────────────────────────────────────

func (s *Service) GetProfile(ctx context.Context, userID int64) (*models.ProfileResponse, error) {
	resp, err := cache.Fetch(ctx, s.cache, profileKey(userID), cache.ProfileTTL,
		func(ctx context.Context) (*models.ProfileResponse, error) {
			return s.buildProfile(ctx, userID)
		})
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch profile", err)
	}
	return resp, nil
}

func (s *Service) buildProfile(ctx context.Context, userID int64) (*models.ProfileResponse, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Activity and the achievement count are decorations; a failure leaves
	// them empty rather than failing the whole profile.
	lessons, err := s.repo.RecentLessons(ctx, userID)
	if err != nil {
		s.log.Warn("recent lessons lookup failed", "user_id", userID, "error", err)
		lessons = []models.LessonActivity{}
	}
	challenges, err := s.repo.RecentChallenges(ctx, userID)
	if err != nil {
		s.log.Warn("recent challenges lookup failed", "user_id", userID, "error", err)
		challenges = []models.ChallengeActivity{}
	}
	unlocked, err := s.repo.CountAchievements(ctx, userID)
	if err != nil {
		s.log.Warn("achievement count failed", "user_id", userID, "error", err)
	}

	points := gamification.ClampPoints(user.Points)
	lvl := gamification.LevelOf(points)
	stats := user.Stats()

	return &models.ProfileResponse{
		Profile: models.ProfileView{
			User:              *user,
			Level:             lvl.Level,
			PointsToNextLevel: lvl.PointsToNext,
			Tier:              gamification.TierOf(points).Name,
			TierProgress:      gamification.ProgressToNextTier(points),
		},
		RecentActivity: models.RecentActivity{Lessons: lessons, Challenges: challenges},
		Stats: models.ProfileStats{
			AchievementsUnlocked: unlocked,
			CurrentStreak:        gamification.TickStreak(stats.StreakCount, stats.LastActiveAt, s.now(), false),
			LessonsCompleted:     stats.LessonsCompleted,
			ChallengesSolved:     stats.ChallengesSolved,
		},
	}, nil
}

// Sanitize trims the value and strips angle brackets.
func Sanitize(v string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(strings.TrimSpace(v))
}

func sanitizePtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := Sanitize(*v)
	return &out
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.UpdateProfileResponse, error) {
	req.FullName = sanitizePtr(req.FullName)
	req.Username = sanitizePtr(req.Username)
	req.Bio = sanitizePtr(req.Bio)
	req.AvatarURL = sanitizePtr(req.AvatarURL)

	if req.Username != nil && !usernamePattern.MatchString(*req.Username) {
		return nil, apperr.Validation("Username must be 3-20 characters: letters, numbers, underscores or hyphens")
	}

	user, err := s.repo.UpdateProfile(ctx, userID, req, s.now().UTC())
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return nil, apperr.Validation("Username is already taken")
	case errors.Is(err, ErrUserNotFound):
		return nil, apperr.NotFound("User")
	case err != nil:
		return nil, apperr.Upstream("Failed to update profile", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, profileKey(userID)); err != nil {
			s.log.Warn("profile cache invalidation failed", "user_id", userID, "error", err)
		}
		// Leaderboard rows carry the display name.
		if req.Username != nil || req.FullName != nil {
			if err := s.cache.DeletePrefix(ctx, cache.LeaderboardPrefix); err != nil {
				s.log.Warn("leaderboard cache invalidation failed", "error", err)
			}
		}
	}

	return &models.UpdateProfileResponse{Profile: *user}, nil
}

// ── Search ──────────────────────────────────────────────

func (s *Service) Search(ctx context.Context, query string) (*models.UserSearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("Search query is required")
	}

	results, err := s.repo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, apperr.Upstream("Failed to search users", err)
	}
	for i := range results {
		results[i].Level = gamification.LevelOf(gamification.ClampPoints(results[i].Points)).Level
	}
	return &models.UserSearchResponse{Users: results, Count: len(results)}, nil
}
