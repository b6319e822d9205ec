package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codebro/backend/internal/database"
	"github.com/codebro/backend/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Stats gathers the dashboard counters in a single round trip. Day
// boundaries are computed by the caller.
func (s *Store) Stats(ctx context.Context, recentSince, todayStart, activeSince time.Time) (*models.AdminStats, error) {
	var st models.AdminStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM lessons),
			(SELECT COUNT(*) FROM challenges),
			(SELECT COUNT(*) FROM achievements),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1),
			(SELECT COALESCE(SUM(points), 0) FROM users),
			(SELECT COUNT(*) FROM user_lessons WHERE status = 'completed' AND completed_at >= $2),
			(SELECT COUNT(*) FROM users WHERE last_active_at >= $3)`,
		recentSince, todayStart, activeSince,
	).Scan(
		&st.TotalUsers, &st.TotalLessons, &st.TotalChallenges, &st.TotalAchievements,
		&st.RecentUsers, &st.TotalPoints, &st.LessonsCompletedToday, &st.ActiveUsers,
	)
	if err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &st, nil
}

// ListUsers returns one page of users, newest first, and the total count.
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+database.UserColumns+` FROM users
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := database.ScanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// DeleteUser removes the user; progress, unlocks and usage rows cascade.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
