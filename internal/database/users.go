package database

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/codebro/backend/internal/models"
)

// UserColumns is the column list ScanUser expects, in order.
const UserColumns = `id, email, COALESCE(full_name, ''), username, COALESCE(bio, ''), COALESCE(avatar_url, ''),
	points, total_lessons_completed, total_challenges_solved, streak_count, last_active_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func ScanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.Username, &u.Bio, &u.AvatarURL,
		&u.Points, &u.TotalLessonsCompleted, &u.TotalChallengesSolved, &u.StreakCount, &u.LastActiveAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// generateUsernameBase creates a lowercase alphanumeric base from an email
// local part or a display name.
func generateUsernameBase(seed string) string {
	if at := strings.IndexByte(seed, '@'); at >= 0 {
		seed = seed[:at]
	}
	var result []byte
	for _, c := range strings.ToLower(seed) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, byte(c))
		}
	}
	if len(result) < 3 {
		return "coder"
	}
	if len(result) > 12 {
		result = result[:12]
	}
	return string(result)
}

// GenerateUsername returns base + 4 random digits. The result always matches
// the profile username rule; callers retry on a unique-constraint collision.
func GenerateUsername(seed string) string {
	return fmt.Sprintf("%s%04d", generateUsernameBase(seed), rand.Intn(10000))
}
