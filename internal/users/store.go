package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codebro/backend/internal/database"
	"github.com/codebro/backend/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username taken")
)

const recentActivityLimit = 5

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := database.ScanUser(s.db.QueryRowContext(ctx,
		`SELECT `+database.UserColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) RecentLessons(ctx context.Context, userID int64) ([]models.LessonActivity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ul.lesson_id, l.title, l.language, l.level, ul.status, ul.completed_at, ul.updated_at
		 FROM user_lessons ul
		 JOIN lessons l ON l.id = ul.lesson_id
		 WHERE ul.user_id = $1
		 ORDER BY ul.updated_at DESC
		 LIMIT $2`,
		userID, recentActivityLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent lessons: %w", err)
	}
	defer rows.Close()

	out := []models.LessonActivity{}
	for rows.Next() {
		var a models.LessonActivity
		if err := rows.Scan(&a.LessonID, &a.Title, &a.Language, &a.Level, &a.Status, &a.CompletedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) RecentChallenges(ctx context.Context, userID int64) ([]models.ChallengeActivity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uc.challenge_id, c.title, c.language, c.difficulty, uc.status, uc.solved_at, uc.updated_at
		 FROM user_challenges uc
		 JOIN challenges c ON c.id = uc.challenge_id
		 WHERE uc.user_id = $1
		 ORDER BY uc.updated_at DESC
		 LIMIT $2`,
		userID, recentActivityLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent challenges: %w", err)
	}
	defer rows.Close()

	out := []models.ChallengeActivity{}
	for rows.Next() {
		var a models.ChallengeActivity
		if err := rows.Scan(&a.ChallengeID, &a.Title, &a.Language, &a.Difficulty, &a.Status, &a.SolvedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountAchievements(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_achievements WHERE user_id = $1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count achievements: %w", err)
	}
	return n, nil
}

// UpdateProfile writes only the fields present in req. The caller has
// already validated and sanitized them.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest, at time.Time) (*models.User, error) {
	args := []interface{}{userID, at}
	paramIdx := 3

	var setClauses []string
	set := func(col string, val *string) {
		if val == nil {
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, paramIdx))
		args = append(args, *val)
		paramIdx++
	}
	set("full_name", req.FullName)
	set("username", req.Username)
	set("bio", req.Bio)
	set("avatar_url", req.AvatarURL)

	extra := ""
	if len(setClauses) > 0 {
		extra = ", " + strings.Join(setClauses, ", ")
	}
	query := fmt.Sprintf(`UPDATE users SET updated_at = $2%s WHERE id = $1 RETURNING %s`,
		extra, database.UserColumns)

	u, err := database.ScanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if database.IsUniqueViolation(err, "users_username_key") {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *Store) Search(ctx context.Context, query string, limit int) ([]models.UserSearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(full_name, ''), username, COALESCE(avatar_url, ''), points, streak_count,
		        total_lessons_completed, total_challenges_solved, created_at
		 FROM users
		 WHERE username ILIKE $1 OR full_name ILIKE $1
		 ORDER BY points DESC, id
		 LIMIT $2`,
		"%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	out := []models.UserSearchResult{}
	for rows.Next() {
		var u models.UserSearchResult
		if err := rows.Scan(&u.ID, &u.FullName, &u.Username, &u.AvatarURL, &u.Points, &u.StreakCount,
			&u.TotalLessonsCompleted, &u.TotalChallengesSolved, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
