package auth

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

var ErrUserNotFound = errors.New("user not found")

const usernameAttempts = 5

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureUser creates the user row for id on first sight. Existing rows are
// left untouched.
func (s *Store) EnsureUser(ctx context.Context, id Identity) error {
	email := strings.TrimSpace(strings.ToLower(id.Email))
	username := database.GenerateUsername(email)
	now := time.Now().UTC()

	// Try up to 5 times in case of username collision
	var err error
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO users (id, email, username, last_active_at, created_at, updated_at)
			 VALUES ($1, $2, $3, NULL, $4, $4)
			 ON CONFLICT (id) DO NOTHING`,
			id.UserID, email, username, now,
		)
		if err == nil {
			return nil
		}
		if database.IsUniqueViolation(err, "users_username_key") {
			username = database.GenerateUsername(email)
			continue
		}
		break
	}
	return fmt.Errorf("provision user %d: %w", id.UserID, err)
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
