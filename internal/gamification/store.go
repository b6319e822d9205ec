package gamification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codebro/backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrChallengeNotFound = errors.New("challenge not found")
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const statsColumns = `id, points, total_lessons_completed, total_challenges_solved, streak_count, last_active_at`

func scanStats(row interface{ Scan(...interface{}) error }) (*models.UserStats, error) {
	var st models.UserStats
	if err := row.Scan(&st.UserID, &st.Points, &st.LessonsCompleted, &st.ChallengesSolved,
		&st.StreakCount, &st.LastActiveAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// ── User Stats ──────────────────────────────────────────

func (s *Store) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	st, err := scanStats(s.db.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return st, nil
}

// ── Catalog Lookups ─────────────────────────────────────

func (s *Store) GetLessonReward(ctx context.Context, lessonID int64) (*LessonInfo, error) {
	var info LessonInfo
	var reward sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, level, points_reward FROM lessons WHERE id = $1`, lessonID,
	).Scan(&info.ID, &info.Level, &reward)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if reward.Valid {
		v := int(reward.Int64)
		info.Reward = &v
	}
	return &info, nil
}

func (s *Store) GetChallengeReward(ctx context.Context, challengeID int64) (*ChallengeInfo, error) {
	var info ChallengeInfo
	var reward sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, points_reward FROM challenges WHERE id = $1`, challengeID,
	).Scan(&info.ID, &reward)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	if reward.Valid {
		v := int(reward.Int64)
		info.Reward = &v
	}
	return &info, nil
}

// ── Completions ─────────────────────────────────────────

// lockStats reads the user's stats row FOR UPDATE so completions for the same
// user serialize inside their transactions.
func lockStats(ctx context.Context, tx *sql.Tx, userID int64) (*models.UserStats, error) {
	st, err := scanStats(tx.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user stats: %w", err)
	}
	return st, nil
}

// applyDelta increments the user's counters and records today's activity.
func applyDelta(ctx context.Context, tx *sql.Tx, userID int64, points, lessons, challenges, streak int, at time.Time) (*models.UserStats, error) {
	st, err := scanStats(tx.QueryRowContext(ctx,
		`UPDATE users SET
		    points = points + $2,
		    total_lessons_completed = total_lessons_completed + $3,
		    total_challenges_solved = total_challenges_solved + $4,
		    streak_count = $5,
		    last_active_at = $6,
		    updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+statsColumns,
		userID, points, lessons, challenges, streak, at))
	if err != nil {
		return nil, fmt.Errorf("apply delta: %w", err)
	}
	return st, nil
}

func (s *Store) CompleteLesson(ctx context.Context, c LessonCompletion) (*CompletionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	before, err := lockStats(ctx, tx, c.UserID)
	if err != nil {
		return nil, err
	}

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM user_lessons WHERE user_id = $1 AND lesson_id = $2`,
		c.UserID, c.LessonID,
	).Scan(&status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get lesson progress: %w", err)
	}
	if status == models.StatusCompleted {
		return &CompletionResult{AlreadyCompleted: true, Stats: *before}, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_lessons (user_id, lesson_id, status, points_awarded, time_spent_minutes, started_at, completed_at, updated_at)
		 VALUES ($1, $2, 'completed', $3, $4, $5, $5, $5)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		    status = 'completed',
		    points_awarded = EXCLUDED.points_awarded,
		    time_spent_minutes = user_lessons.time_spent_minutes + EXCLUDED.time_spent_minutes,
		    completed_at = EXCLUDED.completed_at,
		    updated_at = EXCLUDED.updated_at`,
		c.UserID, c.LessonID, c.Points, c.TimeSpentMinutes, c.At,
	)
	if err != nil {
		return nil, fmt.Errorf("mark lesson completed: %w", err)
	}

	streak := TickStreak(before.StreakCount, before.LastActiveAt, c.At, true)
	after, err := applyDelta(ctx, tx, c.UserID, c.Points, 1, 0, streak, c.At)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &CompletionResult{Stats: *after}, nil
}

func (s *Store) SolveChallenge(ctx context.Context, c ChallengeSolve) (*CompletionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	before, err := lockStats(ctx, tx, c.UserID)
	if err != nil {
		return nil, err
	}

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM user_challenges WHERE user_id = $1 AND challenge_id = $2`,
		c.UserID, c.ChallengeID,
	).Scan(&status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get challenge progress: %w", err)
	}

	if status == models.StatusSolved {
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_challenges SET attempts = attempts + 1, updated_at = $3
			 WHERE user_id = $1 AND challenge_id = $2`,
			c.UserID, c.ChallengeID, c.At,
		); err != nil {
			return nil, fmt.Errorf("count attempt: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return &CompletionResult{AlreadyCompleted: true, Stats: *before}, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_challenges (user_id, challenge_id, status, attempts, points_awarded, best_solution, solved_at, updated_at)
		 VALUES ($1, $2, 'solved', 1, $3, $4, $5, $5)
		 ON CONFLICT (user_id, challenge_id) DO UPDATE SET
		    status = 'solved',
		    attempts = user_challenges.attempts + 1,
		    points_awarded = EXCLUDED.points_awarded,
		    best_solution = EXCLUDED.best_solution,
		    solved_at = EXCLUDED.solved_at,
		    updated_at = EXCLUDED.updated_at`,
		c.UserID, c.ChallengeID, c.Points, c.Solution, c.At,
	)
	if err != nil {
		return nil, fmt.Errorf("mark challenge solved: %w", err)
	}

	streak := TickStreak(before.StreakCount, before.LastActiveAt, c.At, true)
	after, err := applyDelta(ctx, tx, c.UserID, c.Points, 0, 1, streak, c.At)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &CompletionResult{Stats: *after}, nil
}

// ── Achievements ────────────────────────────────────────

func (s *Store) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, icon, criteria_type, criteria_value, points_reward
		 FROM achievements ORDER BY points_reward DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var defs []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon,
			&a.CriteriaType, &a.CriteriaValue, &a.PointsReward); err != nil {
			return nil, err
		}
		defs = append(defs, a)
	}
	return defs, rows.Err()
}

func (s *Store) UnlockedAchievements(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_id, unlocked_at FROM user_achievements WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[int64]time.Time)
	for rows.Next() {
		var id int64
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		unlocked[id] = at
	}
	return unlocked, rows.Err()
}

// UnlockAchievement records the unlock once. It reports false when the pair
// already existed.
func (s *Store) UnlockAchievement(ctx context.Context, userID, achievementID int64, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO user_achievements (user_id, achievement_id, unlocked_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		userID, achievementID, at,
	)
	if err != nil {
		return false, fmt.Errorf("unlock achievement %d: %w", achievementID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertAchievement inserts or refreshes a definition keyed by name.
func (s *Store) UpsertAchievement(ctx context.Context, a models.Achievement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (name, description, icon, criteria_type, criteria_value, points_reward)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO UPDATE SET
		    description = EXCLUDED.description,
		    icon = EXCLUDED.icon,
		    criteria_type = EXCLUDED.criteria_type,
		    criteria_value = EXCLUDED.criteria_value,
		    points_reward = EXCLUDED.points_reward`,
		a.Name, a.Description, a.Icon, a.CriteriaType, a.CriteriaValue, a.PointsReward,
	)
	if err != nil {
		return fmt.Errorf("upsert achievement %q: %w", a.Name, err)
	}
	return nil
}

// ── Leaderboard ─────────────────────────────────────────

const entryColumns = `id, COALESCE(full_name, ''), username, COALESCE(avatar_url, ''),
	points, streak_count, total_lessons_completed, total_challenges_solved`

func scanEntries(rows *sql.Rows) ([]models.LeaderboardEntry, error) {
	defer rows.Close()
	var entries []models.LeaderboardEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(row interface{ Scan(...interface{}) error }) (*models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	var fullName string
	if err := row.Scan(&e.UserID, &fullName, &e.Username, &e.AvatarURL,
		&e.Points, &e.StreakCount, &e.LessonsCompleted, &e.ChallengesSolved); err != nil {
		return nil, err
	}
	e.DisplayName = models.User{FullName: fullName, Username: e.Username}.DisplayName()
	return &e, nil
}

func (s *Store) TopByPoints(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM users ORDER BY points DESC, id ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top by points: %w", err)
	}
	return scanEntries(rows)
}

func (s *Store) GetLeaderboardEntry(ctx context.Context, userID int64) (*models.LeaderboardEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get leaderboard entry: %w", err)
	}
	return e, nil
}

func (s *Store) CountUsersAbove(ctx context.Context, points int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE points > $1`, points,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users above: %w", err)
	}
	return n, nil
}

// ListLeaderboardUsers returns every user with all-time counters; windowed
// boards overwrite points and counts.
func (s *Store) ListLeaderboardUsers(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list leaderboard users: %w", err)
	}
	return scanEntries(rows)
}

func (s *Store) LessonEvents(ctx context.Context, userID int64, since time.Time) ([]models.CompletionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ul.completed_at, COALESCE(NULLIF(ul.points_awarded, 0), l.points_reward, 0)
		 FROM user_lessons ul
		 JOIN lessons l ON l.id = ul.lesson_id
		 WHERE ul.user_id = $1 AND ul.status = 'completed' AND ul.completed_at >= $2`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("lesson events: %w", err)
	}
	return scanEvents(rows)
}

func (s *Store) ChallengeEvents(ctx context.Context, userID int64, since time.Time) ([]models.CompletionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uc.solved_at, COALESCE(NULLIF(uc.points_awarded, 0), c.points_reward, 0)
		 FROM user_challenges uc
		 JOIN challenges c ON c.id = uc.challenge_id
		 WHERE uc.user_id = $1 AND uc.status = 'solved' AND uc.solved_at >= $2`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("challenge events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.CompletionEvent, error) {
	defer rows.Close()
	var events []models.CompletionEvent
	for rows.Next() {
		var ev models.CompletionEvent
		if err := rows.Scan(&ev.CompletedAt, &ev.Reward); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ── Streak Worker Helpers ───────────────────────────────

func (s *Store) ListStreakHolders(ctx context.Context) ([]models.UserStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+statsColumns+` FROM users WHERE streak_count > 0`,
	)
	if err != nil {
		return nil, fmt.Errorf("list streak holders: %w", err)
	}
	defer rows.Close()

	var users []models.UserStats
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *st)
	}
	return users, rows.Err()
}

// ResetStreak lowers a streak only if the user has not been active since the
// snapshot was taken.
func (s *Store) ResetStreak(ctx context.Context, userID int64, streak int, lastActiveAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET streak_count = $2, updated_at = NOW()
		 WHERE id = $1 AND last_active_at IS NOT DISTINCT FROM $3`,
		userID, streak, lastActiveAt,
	)
	return err
}
