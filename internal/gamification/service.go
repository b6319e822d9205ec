package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/cache"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

// LessonInfo is what a completion needs to know about a lesson.
type LessonInfo struct {
	ID     int64
	Level  string
	Reward *int
}

type ChallengeInfo struct {
	ID     int64
	Reward *int
}

// LessonCompletion asks the store to apply Points to the user atomically.
type LessonCompletion struct {
	UserID           int64
	LessonID         int64
	Points           int
	TimeSpentMinutes int
	At               time.Time
}

type ChallengeSolve struct {
	UserID      int64
	ChallengeID int64
	Points      int
	Solution    string
	At          time.Time
}

// CompletionResult is the user's stats after the store applied a completion.
// When AlreadyCompleted is set nothing was awarded and Stats is unchanged.
type CompletionResult struct {
	AlreadyCompleted bool
	Stats            models.UserStats
}

// Repository is the persistence contract the engine runs against. Store is
// the Postgres implementation.
type Repository interface {
	GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error)
	GetLessonReward(ctx context.Context, lessonID int64) (*LessonInfo, error)
	GetChallengeReward(ctx context.Context, challengeID int64) (*ChallengeInfo, error)
	CompleteLesson(ctx context.Context, c LessonCompletion) (*CompletionResult, error)
	SolveChallenge(ctx context.Context, c ChallengeSolve) (*CompletionResult, error)

	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	UnlockedAchievements(ctx context.Context, userID int64) (map[int64]time.Time, error)
	UnlockAchievement(ctx context.Context, userID, achievementID int64, at time.Time) (bool, error)
	UpsertAchievement(ctx context.Context, a models.Achievement) error

	TopByPoints(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	GetLeaderboardEntry(ctx context.Context, userID int64) (*models.LeaderboardEntry, error)
	CountUsersAbove(ctx context.Context, points int64) (int, error)
	ListLeaderboardUsers(ctx context.Context) ([]models.LeaderboardEntry, error)
	LessonEvents(ctx context.Context, userID int64, since time.Time) ([]models.CompletionEvent, error)
	ChallengeEvents(ctx context.Context, userID int64, since time.Time) ([]models.CompletionEvent, error)

	ListStreakHolders(ctx context.Context) ([]models.UserStats, error)
	ResetStreak(ctx context.Context, userID int64, streak int, lastActiveAt *time.Time) error
}

// Options tunes the windowed leaderboard fan-out.
type Options struct {
	Fanout       int
	QueryTimeout time.Duration
}

type Service struct {
	repo  Repository
	cache cache.Cache
	log   *logger.Logger
	opts  Options
	now   func() time.Time
}

func NewService(repo Repository, c cache.Cache, log *logger.Logger, opts Options) *Service {
	if opts.Fanout <= 0 {
		opts.Fanout = 8
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}
	return &Service{
		repo:  repo,
		cache: c,
		log:   log.With("service", "gamification"),
		opts:  opts,
		now:   time.Now,
	}
}

// ── Completions ─────────────────────────────────────────

func (s *Service) CompleteLesson(ctx context.Context, userID, lessonID int64, timeSpentMinutes int) (*models.CompletionResponse, error) {
	if timeSpentMinutes < 0 {
		return nil, apperr.Validation("time_spent_minutes must not be negative")
	}

	lesson, err := s.repo.GetLessonReward(ctx, lessonID)
	if errors.Is(err, ErrLessonNotFound) {
		return nil, apperr.NotFound("Lesson")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to complete lesson", err)
	}

	delta := LessonReward(lesson.Reward, lesson.Level)
	res, err := s.repo.CompleteLesson(ctx, LessonCompletion{
		UserID:           userID,
		LessonID:         lessonID,
		Points:           delta,
		TimeSpentMinutes: timeSpentMinutes,
		At:               s.now().UTC(),
	})
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to complete lesson", err)
	}

	if res.AlreadyCompleted {
		return alreadyDone(res.Stats, "Lesson already completed"), nil
	}
	return s.finishCompletion(ctx, res.Stats, delta), nil
}

func (s *Service) SolveChallenge(ctx context.Context, userID, challengeID int64, solution string) (*models.CompletionResponse, error) {
	solution = strings.TrimSpace(solution)
	if solution == "" {
		return nil, apperr.Validation("Solution is required")
	}

	challenge, err := s.repo.GetChallengeReward(ctx, challengeID)
	if errors.Is(err, ErrChallengeNotFound) {
		return nil, apperr.NotFound("Challenge")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to submit solution", err)
	}

	delta := ChallengeReward(challenge.Reward)
	res, err := s.repo.SolveChallenge(ctx, ChallengeSolve{
		UserID:      userID,
		ChallengeID: challengeID,
		Points:      delta,
		Solution:    solution,
		At:          s.now().UTC(),
	})
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to submit solution", err)
	}

	if res.AlreadyCompleted {
		return alreadyDone(res.Stats, "Challenge already solved"), nil
	}
	return s.finishCompletion(ctx, res.Stats, delta), nil
}

func alreadyDone(stats models.UserStats, msg string) *models.CompletionResponse {
	lvl := LevelOf(ClampPoints(stats.Points))
	return &models.CompletionResponse{
		Success:              true,
		AlreadyCompleted:     true,
		Message:              msg,
		TotalPoints:          stats.Points,
		Level:                lvl.Level,
		PointsToNextLevel:    lvl.PointsToNext,
		Streak:               stats.StreakCount,
		AchievementsUnlocked: []models.Achievement{},
	}
}

func (s *Service) finishCompletion(ctx context.Context, stats models.UserStats, delta int) *models.CompletionResponse {
	unlocked := s.unlockAchievements(ctx, stats)
	s.invalidate(ctx, stats.UserID)

	lvl := LevelOf(ClampPoints(stats.Points))
	return &models.CompletionResponse{
		Success:              true,
		PointsEarned:         delta,
		TotalPoints:          stats.Points,
		Level:                lvl.Level,
		PointsToNextLevel:    lvl.PointsToNext,
		Streak:               stats.StreakCount,
		AchievementsUnlocked: unlocked,
	}
}

// unlockAchievements evaluates stats against the definitions the user does
// not hold yet and persists each match. A failed unlock is logged and skipped;
// only rows that were actually inserted are returned.
func (s *Service) unlockAchievements(ctx context.Context, stats models.UserStats) []models.Achievement {
	newly := []models.Achievement{}

	defs, err := s.loadAchievements(ctx)
	if err != nil {
		s.log.Error("load achievements failed", "user_id", stats.UserID, "error", err)
		return newly
	}
	held, err := s.repo.UnlockedAchievements(ctx, stats.UserID)
	if err != nil {
		s.log.Error("load unlocked achievements failed", "user_id", stats.UserID, "error", err)
		return newly
	}
	unlockedSet := make(map[int64]bool, len(held))
	for id := range held {
		unlockedSet[id] = true
	}

	now := s.now().UTC()
	for _, a := range Evaluate(stats, defs, unlockedSet) {
		inserted, err := s.repo.UnlockAchievement(ctx, stats.UserID, a.ID, now)
		if err != nil {
			s.log.Warn("unlock achievement failed", "user_id", stats.UserID, "achievement_id", a.ID, "error", err)
			continue
		}
		if inserted {
			s.log.Info("achievement unlocked", "user_id", stats.UserID, "achievement", a.Name)
			newly = append(newly, a)
		}
	}
	return newly
}

func (s *Service) loadAchievements(ctx context.Context) ([]models.Achievement, error) {
	return cache.Fetch(ctx, s.cache, cache.AchievementsPrefix+"definitions", cache.AchievementsTTL, s.repo.ListAchievements)
}

// invalidate drops cached views that a completion changed.
func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
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

// ── Achievements ────────────────────────────────────────

func (s *Service) GetAchievements(ctx context.Context, userID int64) (*models.AchievementsResponse, error) {
	defs, err := s.loadAchievements(ctx)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch achievements", err)
	}
	held, err := s.repo.UnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch achievements", err)
	}

	out := make([]models.AchievementStatus, 0, len(defs))
	for _, a := range defs {
		st := models.AchievementStatus{Achievement: a}
		if at, ok := held[a.ID]; ok {
			at := at
			st.Unlocked = true
			st.UnlockedAt = &at
		}
		out = append(out, st)
	}

	return &models.AchievementsResponse{
		Achievements:      out,
		TotalUnlocked:     len(held),
		TotalAchievements: len(defs),
	}, nil
}

// SeedAchievements upserts definitions by name and drops the cached list.
func (s *Service) SeedAchievements(ctx context.Context, defs []models.Achievement) error {
	for _, a := range defs {
		if err := s.repo.UpsertAchievement(ctx, a); err != nil {
			return err
		}
	}
	if s.cache != nil {
		_ = s.cache.DeletePrefix(ctx, cache.AchievementsPrefix)
	}
	s.log.Info("achievements seeded", "count", len(defs))
	return nil
}

// ── Progress ────────────────────────────────────────────

func (s *Service) GetProgress(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	key := fmt.Sprintf("%s%d", cache.StatsPrefix, userID)
	stats, err := cache.Fetch(ctx, s.cache, key, cache.StatsTTL, func(ctx context.Context) (*models.UserStats, error) {
		return s.repo.GetUserStats(ctx, userID)
	})
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch progress", err)
	}

	points := ClampPoints(stats.Points)
	lvl := LevelOf(points)
	// A cached snapshot may predate a missed day.
	streak := TickStreak(stats.StreakCount, stats.LastActiveAt, s.now(), false)
	return &models.ProgressResponse{
		Points:            stats.Points,
		Level:             lvl.Level,
		PointsToNextLevel: lvl.PointsToNext,
		Tier:              TierOf(points).Name,
		TierProgress:      ProgressToNextTier(points),
		Streak:            streak,
		LessonsCompleted:  stats.LessonsCompleted,
		ChallengesSolved:  stats.ChallengesSolved,
	}, nil
}

// ── Leaderboard ─────────────────────────────────────────

func (s *Service) GetLeaderboard(ctx context.Context, userID int64, period models.LeaderboardPeriod, limit int) (*models.LeaderboardResponse, error) {
	if period == "" {
		period = models.PeriodAllTime
	}
	if !models.ValidPeriods[period] {
		return nil, apperr.Validation("period must be one of all-time, weekly, monthly")
	}
	limit = NormalizeLimit(limit)

	key := fmt.Sprintf("%s%s:%d:%d", cache.LeaderboardPrefix, period, limit, userID)
	resp, err := cache.Fetch(ctx, s.cache, key, cache.LeaderboardTTL, func(ctx context.Context) (*models.LeaderboardResponse, error) {
		if cutoff, windowed := WindowStart(period, s.now()); windowed {
			return s.windowedBoard(ctx, userID, period, limit, cutoff)
		}
		return s.allTimeBoard(ctx, userID, limit)
	})
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch leaderboard", err)
	}
	return resp, nil
}

func (s *Service) allTimeBoard(ctx context.Context, userID int64, limit int) (*models.LeaderboardResponse, error) {
	top, err := s.repo.TopByPoints(ctx, limit)
	if err != nil {
		return nil, err
	}
	board := Rank(top, limit, userID)

	inTop := false
	for _, r := range board.Rows {
		if r.IsCurrentUser {
			inTop = true
			break
		}
	}
	if !inTop && userID != 0 {
		row, err := s.allTimeFallback(ctx, userID)
		if err != nil {
			// The board itself is still valid without the caller's row.
			s.log.Warn("current user rank failed", "user_id", userID, "error", err)
		} else {
			board.CurrentUser = row
		}
	}
	return toResponse(board, models.PeriodAllTime), nil
}

func (s *Service) allTimeFallback(ctx context.Context, userID int64) (*models.LeaderboardRow, error) {
	entry, err := s.repo.GetLeaderboardEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	above, err := s.repo.CountUsersAbove(ctx, entry.Points)
	if err != nil {
		return nil, err
	}
	return &models.LeaderboardRow{LeaderboardEntry: *entry, Rank: above + 1, IsCurrentUser: true}, nil
}

// windowedBoard sums each user's completions since cutoff. Every user costs
// two queries that run with bounded parallelism; a failed or timed-out query
// is logged and counts as zero for that user.
func (s *Service) windowedBoard(ctx context.Context, userID int64, period models.LeaderboardPeriod, limit int, cutoff time.Time) (*models.LeaderboardResponse, error) {
	users, err := s.repo.ListLeaderboardUsers(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct {
		points int64
		count  int
	}
	lessons := make([]tally, len(users))
	challenges := make([]tally, len(users))

	var failures int
	var mu sync.Mutex
	fail := func(uid int64, metric string, err error) {
		mu.Lock()
		failures++
		mu.Unlock()
		s.log.Warn("windowed leaderboard query failed", "user_id", uid, "metric", metric, "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Fanout)

	for i := range users {
		i := i
		uid := users[i].UserID
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, s.opts.QueryTimeout)
			defer cancel()
			events, err := s.repo.LessonEvents(qctx, uid, cutoff)
			if err != nil {
				fail(uid, "lessons", err)
				return nil
			}
			p, n := SumWindow(events, cutoff)
			lessons[i] = tally{p, n}
			return nil
		})
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, s.opts.QueryTimeout)
			defer cancel()
			events, err := s.repo.ChallengeEvents(qctx, uid, cutoff)
			if err != nil {
				fail(uid, "challenges", err)
				return nil
			}
			p, n := SumWindow(events, cutoff)
			challenges[i] = tally{p, n}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failures > 0 {
		s.log.Warn("windowed leaderboard degraded", "period", period, "failed_queries", failures)
	}

	entries := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		u.Points = lessons[i].points + challenges[i].points
		u.LessonsCompleted = lessons[i].count
		u.ChallengesSolved = challenges[i].count
		entries[i] = u
	}

	return toResponse(Rank(entries, limit, userID), period), nil
}

func toResponse(b Board, period models.LeaderboardPeriod) *models.LeaderboardResponse {
	rows := b.Rows
	if rows == nil {
		rows = []models.LeaderboardRow{}
	}
	return &models.LeaderboardResponse{
		Leaderboard:     rows,
		CurrentUserRank: b.CurrentUser,
		Period:          period,
		TotalEntries:    len(rows),
	}
}

// ── Background Workers ──────────────────────────────────

// StartDailyStreakWorker checks hourly and, during the 00:xx UTC hour, resets
// streaks of users who missed a day.
func (s *Service) StartDailyStreakWorker(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	s.log.Info("daily streak worker started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("daily streak worker shutting down")
			return
		case t := <-ticker.C:
			if t.UTC().Hour() == 0 {
				reset, err := s.RunDailyStreakCheck(ctx)
				if err != nil {
					s.log.Error("daily streak check failed", "error", err)
					continue
				}
				s.log.Info("daily streak check done", "reset", reset)
			}
		}
	}
}

// RunDailyStreakCheck applies an inactive tick to every user holding a
// streak and persists the ones that changed. It returns how many changed.
func (s *Service) RunDailyStreakCheck(ctx context.Context) (int, error) {
	users, err := s.repo.ListStreakHolders(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	reset := 0
	for _, u := range users {
		next := TickStreak(u.StreakCount, u.LastActiveAt, now, false)
		if next == u.StreakCount {
			continue
		}
		if err := s.repo.ResetStreak(ctx, u.UserID, next, u.LastActiveAt); err != nil {
			s.log.Warn("streak reset failed", "user_id", u.UserID, "error", err)
			continue
		}
		reset++
	}
	if reset > 0 && s.cache != nil {
		_ = s.cache.DeletePrefix(ctx, cache.LeaderboardPrefix)
		_ = s.cache.DeletePrefix(ctx, cache.StatsPrefix)
		_ = s.cache.DeletePrefix(ctx, cache.ProfilePrefix)
	}
	return reset, nil
}
