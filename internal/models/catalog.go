package models

import "time"

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusSolved     = "solved"
	StatusAttempted  = "attempted"
)

type Lesson struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Language     string    `json:"language"`
	Level        string    `json:"level"`
	Category     string    `json:"category"`
	Content      string    `json:"content,omitempty"`
	PointsReward *int      `json:"points_reward"`
	OrderIndex   int       `json:"order_index"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type Challenge struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Language     string    `json:"language"`
	Difficulty   string    `json:"difficulty"`
	PointsReward *int      `json:"points_reward"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type LessonProgress struct {
	LessonID         int64      `json:"-"`
	Status           string     `json:"status"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	TimeSpentMinutes int        `json:"time_spent_minutes"`
}

type ChallengeProgress struct {
	ChallengeID  int64      `json:"-"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	SolvedAt     *time.Time `json:"solved_at"`
	BestSolution string     `json:"best_solution,omitempty"`
}

type LessonWithProgress struct {
	Lesson
	Progress *LessonProgress `json:"progress"`
}

type ChallengeWithProgress struct {
	Challenge
	Progress *ChallengeProgress `json:"progress"`
}

type LessonFilter struct {
	Language string
	Level    string
	Category string
}

type ChallengeFilter struct {
	Language   string
	Difficulty string
}

const (
	LessonPublished = "published"
	ChallengeActive = "active"
)

type LessonsResponse struct {
	Lessons []LessonWithProgress `json:"lessons"`
}

type LessonResponse struct {
	Lesson LessonWithProgress `json:"lesson"`
}

type ChallengesResponse struct {
	Challenges []ChallengeWithProgress `json:"challenges"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
