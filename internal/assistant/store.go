package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codebro/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CountSince returns how many messages the user sent at or after since.
func (s *Store) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(message_count), 0) FROM ai_usage
		 WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ai usage: %w", err)
	}
	return n, nil
}

func (s *Store) LogUsage(ctx context.Context, u models.AIUsage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_usage (user_id, message_count, tokens_used, model_used, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.UserID, u.MessageCount, u.TokensUsed, u.ModelUsed, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("log ai usage: %w", err)
	}
	return nil
}
