package models

import (
	"strings"
	"time"
)

type User struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	FullName              string     `json:"full_name"`
	Username              string     `json:"username"`
	Bio                   string     `json:"bio"`
	AvatarURL             string     `json:"avatar_url"`
	Points                int64      `json:"points"`
	TotalLessonsCompleted int        `json:"total_lessons_completed"`
	TotalChallengesSolved int        `json:"total_challenges_solved"`
	StreakCount           int        `json:"streak_count"`
	LastActiveAt          *time.Time `json:"last_active_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// DisplayName returns "FirstName L." format (first name + last initial).
// Falls back to the username when no full name is on file.
func (u User) DisplayName() string {
	parts := strings.Fields(u.FullName)
	if len(parts) == 0 {
		return u.Username
	}
	if len(parts) == 1 {
		return parts[0]
	}
	lastName := []rune(parts[len(parts)-1])
	return parts[0] + " " + string(lastName[0]) + "."
}

// Stats returns the gamification snapshot held on the user row.
func (u User) Stats() UserStats {
	return UserStats{
		UserID:           u.ID,
		Points:           u.Points,
		LessonsCompleted: u.TotalLessonsCompleted,
		ChallengesSolved: u.TotalChallengesSolved,
		StreakCount:      u.StreakCount,
		LastActiveAt:     u.LastActiveAt,
	}
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type ProfileResponse struct {
	Profile        ProfileView    `json:"profile"`
	RecentActivity RecentActivity `json:"recent_activity"`
	Stats          ProfileStats   `json:"stats"`
}

type ProfileView struct {
	User
	Level             int    `json:"level"`
	PointsToNextLevel int64  `json:"points_to_next_level"`
	Tier              string `json:"tier"`
	TierProgress      int    `json:"tier_progress"`
}

type RecentActivity struct {
	Lessons    []LessonActivity    `json:"lessons"`
	Challenges []ChallengeActivity `json:"challenges"`
}

type LessonActivity struct {
	LessonID    int64      `json:"lesson_id"`
	Title       string     `json:"title"`
	Language    string     `json:"language"`
	Level       string     `json:"level"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ChallengeActivity struct {
	ChallengeID int64      `json:"challenge_id"`
	Title       string     `json:"title"`
	Language    string     `json:"language"`
	Difficulty  string     `json:"difficulty"`
	Status      string     `json:"status"`
	SolvedAt    *time.Time `json:"solved_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ProfileStats struct {
	AchievementsUnlocked int `json:"achievements_unlocked"`
	CurrentStreak        int `json:"current_streak"`
	LessonsCompleted     int `json:"lessons_completed"`
	ChallengesSolved     int `json:"challenges_solved"`
}

type UserSearchResult struct {
	ID                    int64     `json:"id"`
	FullName              string    `json:"full_name"`
	Username              string    `json:"username"`
	AvatarURL             string    `json:"avatar_url"`
	Points                int64     `json:"points"`
	StreakCount           int       `json:"streak_count"`
	TotalLessonsCompleted int       `json:"total_lessons_completed"`
	TotalChallengesSolved int       `json:"total_challenges_solved"`
	Level                 int       `json:"level"`
	CreatedAt             time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type UpdateProfileResponse struct {
	Profile User `json:"profile"`
}

type UserSearchResponse struct {
	Users []UserSearchResult `json:"users"`
	Count int                `json:"count"`
}
