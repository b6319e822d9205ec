package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/codebro/backend/internal/models"
)

var ErrLessonNotFound = errors.New("lesson not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const lessonColumns = `id, title, COALESCE(description, ''), language, level, COALESCE(category, ''),
	COALESCE(content, ''), points_reward, order_index, status, created_at`

func scanLesson(row interface{ Scan(...interface{}) error }) (*models.Lesson, error) {
	var l models.Lesson
	var reward sql.NullInt64
	if err := row.Scan(&l.ID, &l.Title, &l.Description, &l.Language, &l.Level, &l.Category,
		&l.Content, &reward, &l.OrderIndex, &l.Status, &l.CreatedAt); err != nil {
		return nil, err
	}
	if reward.Valid {
		v := int(reward.Int64)
		l.PointsReward = &v
	}
	return &l, nil
}

// ── Lessons ─────────────────────────────────────────────

func (s *Store) ListLessons(ctx context.Context, f models.LessonFilter) ([]models.Lesson, error) {
	args := []interface{}{models.LessonPublished}
	paramIdx := 2

	var filterClauses []string
	add := func(col, val string) {
		if val == "" {
			return
		}
		filterClauses = append(filterClauses, fmt.Sprintf("AND %s = $%d", col, paramIdx))
		args = append(args, val)
		paramIdx++
	}
	add("language", f.Language)
	add("level", f.Level)
	add("category", f.Category)

	query := fmt.Sprintf(`
		SELECT %s FROM lessons
		WHERE status = $1 %s
		ORDER BY order_index, id`, lessonColumns, strings.Join(filterClauses, " "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		// list views stay small
		l.Content = ""
		lessons = append(lessons, *l)
	}
	return lessons, rows.Err()
}

func (s *Store) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	l, err := scanLesson(s.db.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return l, nil
}

func (s *Store) LessonProgress(ctx context.Context, userID int64, lessonIDs []int64) (map[int64]models.LessonProgress, error) {
	out := make(map[int64]models.LessonProgress)
	if len(lessonIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT lesson_id, status, started_at, completed_at, time_spent_minutes
		 FROM user_lessons WHERE user_id = $1 AND lesson_id = ANY($2)`,
		userID, pq.Array(lessonIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("lesson progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.LessonProgress
		if err := rows.Scan(&p.LessonID, &p.Status, &p.StartedAt, &p.CompletedAt, &p.TimeSpentMinutes); err != nil {
			return nil, err
		}
		out[p.LessonID] = p
	}
	return out, rows.Err()
}

// StartLesson marks a lesson in progress. A completed lesson stays completed.
func (s *Store) StartLesson(ctx context.Context, userID, lessonID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_lessons (user_id, lesson_id, status, started_at, updated_at)
		 VALUES ($1, $2, 'in_progress', $3, $3)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
		    status = CASE WHEN user_lessons.status = 'completed' THEN 'completed' ELSE 'in_progress' END,
		    updated_at = EXCLUDED.updated_at`,
		userID, lessonID, at,
	)
	if err != nil {
		return fmt.Errorf("start lesson: %w", err)
	}
	return nil
}

// ── Challenges ──────────────────────────────────────────

func (s *Store) ListChallenges(ctx context.Context, f models.ChallengeFilter) ([]models.Challenge, error) {
	args := []interface{}{models.ChallengeActive}
	paramIdx := 2

	var filterClauses []string
	if f.Language != "" {
		filterClauses = append(filterClauses, fmt.Sprintf("AND language = $%d", paramIdx))
		args = append(args, f.Language)
		paramIdx++
	}
	if f.Difficulty != "" {
		filterClauses = append(filterClauses, fmt.Sprintf("AND difficulty = $%d", paramIdx))
		args = append(args, f.Difficulty)
	}

	query := fmt.Sprintf(`
		SELECT id, title, COALESCE(description, ''), language, difficulty, points_reward, status, created_at
		FROM challenges
		WHERE status = $1 %s
		ORDER BY difficulty, id`, strings.Join(filterClauses, " "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	challenges := []models.Challenge{}
	for rows.Next() {
		var c models.Challenge
		var reward sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Language, &c.Difficulty,
			&reward, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		if reward.Valid {
			v := int(reward.Int64)
			c.PointsReward = &v
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (s *Store) ChallengeProgress(ctx context.Context, userID int64, challengeIDs []int64) (map[int64]models.ChallengeProgress, error) {
	out := make(map[int64]models.ChallengeProgress)
	if len(challengeIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT challenge_id, status, attempts, solved_at, COALESCE(best_solution, '')
		 FROM user_challenges WHERE user_id = $1 AND challenge_id = ANY($2)`,
		userID, pq.Array(challengeIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("challenge progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.ChallengeProgress
		if err := rows.Scan(&p.ChallengeID, &p.Status, &p.Attempts, &p.SolvedAt, &p.BestSolution); err != nil {
			return nil, err
		}
		out[p.ChallengeID] = p
	}
	return out, rows.Err()
}
