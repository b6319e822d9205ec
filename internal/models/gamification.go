package models

import "time"

// ── Core Gamification Structs ─────────────────────────────

// UserStats is the snapshot of a user's cumulative progress. The level is
// never part of it; it is always derived from Points.
type UserStats struct {
	UserID           int64      `json:"user_id"`
	Points           int64      `json:"points"`
	LessonsCompleted int        `json:"lessons_completed"`
	ChallengesSolved int        `json:"challenges_solved"`
	StreakCount      int        `json:"streak_count"`
	LastActiveAt     *time.Time `json:"last_active_at"`
}

type CriteriaType string

const (
	CriteriaLessonsCompleted CriteriaType = "lessons_completed"
	CriteriaPointsEarned     CriteriaType = "points_earned"
	CriteriaChallengesSolved CriteriaType = "challenges_solved"
	CriteriaStreakDays       CriteriaType = "streak_days"
)

var ValidCriteriaTypes = map[CriteriaType]bool{
	CriteriaLessonsCompleted: true,
	CriteriaPointsEarned:     true,
	CriteriaChallengesSolved: true,
	CriteriaStreakDays:       true,
}

type Achievement struct {
	ID            int64        `json:"id" yaml:"-"`
	Name          string       `json:"name" yaml:"name"`
	Description   string       `json:"description" yaml:"description"`
	Icon          string       `json:"icon" yaml:"icon"`
	CriteriaType  CriteriaType `json:"criteria_type" yaml:"criteria_type"`
	CriteriaValue int64        `json:"criteria_value" yaml:"criteria_value"`
	PointsReward  int          `json:"points_reward" yaml:"points_reward"`
}

type UserAchievement struct {
	UserID        int64     `json:"user_id"`
	AchievementID int64     `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// CompletionEvent is one finished lesson or solved challenge together with the
// reward it carried, used for windowed leaderboards.
type CompletionEvent struct {
	CompletedAt time.Time `json:"completed_at"`
	Reward      int       `json:"reward"`
}

// ── Request Types ─────────────────────────────────────────

type CompleteLessonRequest struct {
	TimeSpentMinutes int `json:"time_spent_minutes"`
}

type SolveChallengeRequest struct {
	Solution string `json:"solution"`
}

// ── Response Types ────────────────────────────────────────

type CompletionResponse struct {
	Success              bool          `json:"success"`
	AlreadyCompleted     bool          `json:"already_completed,omitempty"`
	Message              string        `json:"message,omitempty"`
	PointsEarned         int           `json:"points_earned"`
	TotalPoints          int64         `json:"total_points"`
	Level                int           `json:"level"`
	PointsToNextLevel    int64         `json:"points_to_next_level"`
	Streak               int           `json:"streak"`
	AchievementsUnlocked []Achievement `json:"achievements_unlocked"`
}

type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at"`
}

type AchievementsResponse struct {
	Achievements      []AchievementStatus `json:"achievements"`
	TotalUnlocked     int                 `json:"total_unlocked"`
	TotalAchievements int                 `json:"total_achievements"`
}

type ProgressResponse struct {
	Points            int64  `json:"points"`
	Level             int    `json:"level"`
	PointsToNextLevel int64  `json:"points_to_next_level"`
	Tier              string `json:"tier"`
	TierProgress      int    `json:"tier_progress"`
	Streak            int    `json:"streak"`
	LessonsCompleted  int    `json:"lessons_completed"`
	ChallengesSolved  int    `json:"challenges_solved"`
}

// ── Leaderboard ───────────────────────────────────────────

type LeaderboardPeriod string

const (
	PeriodAllTime LeaderboardPeriod = "all-time"
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
)

var ValidPeriods = map[LeaderboardPeriod]bool{
	PeriodAllTime: true,
	PeriodWeekly:  true,
	PeriodMonthly: true,
}

// LeaderboardEntry is one user's standing before ranking.
type LeaderboardEntry struct {
	UserID           int64  `json:"user_id"`
	DisplayName      string `json:"display_name"`
	Username         string `json:"username"`
	AvatarURL        string `json:"avatar_url"`
	Points           int64  `json:"points"`
	StreakCount      int    `json:"streak_count"`
	LessonsCompleted int    `json:"total_lessons_completed"`
	ChallengesSolved int    `json:"total_challenges_solved"`
}

type LeaderboardRow struct {
	LeaderboardEntry
	Rank          int  `json:"rank"`
	IsCurrentUser bool `json:"is_current_user"`
}

type LeaderboardResponse struct {
	Leaderboard     []LeaderboardRow  `json:"leaderboard"`
	CurrentUserRank *LeaderboardRow   `json:"current_user_rank"`
	Period          LeaderboardPeriod `json:"period"`
	TotalEntries    int               `json:"total_entries"`
}
