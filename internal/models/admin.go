package models

import "time"

type AdminStats struct {
	TotalUsers            int   `json:"total_users"`
	TotalLessons          int   `json:"total_lessons"`
	TotalChallenges       int   `json:"total_challenges"`
	TotalAchievements     int   `json:"total_achievements"`
	RecentUsers           int   `json:"recent_users"`
	TotalPoints           int64 `json:"total_points"`
	LessonsCompletedToday int   `json:"lessons_completed_today"`
	ActiveUsers           int   `json:"active_users"`
}

type AdminUser struct {
	User
	Level int `json:"level"`
}

type AdminUsersResponse struct {
	Users      []AdminUser `json:"users"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// ── AI Assistant ──────────────────────────────────────────

type AIUsage struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	MessageCount int       `json:"message_count"`
	TokensUsed   int       `json:"tokens_used"`
	ModelUsed    string    `json:"model_used"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

type QuotaExceededResponse struct {
	Error        string `json:"error"`
	LimitReached bool   `json:"limit_reached"`
	Remaining    int    `json:"remaining"`
	Limit        int    `json:"limit"`
}

type UsageResponse struct {
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetsAt  time.Time `json:"resets_at"`
}

type AdminStatsResponse struct {
	Stats AdminStats `json:"stats"`
}
