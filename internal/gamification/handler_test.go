package gamification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebro/backend/internal/auth"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

func newTestRouter(t *testing.T, repo Repository, userID int64) *mux.Router {
	t.Helper()
	h := NewHandler(newTestService(t, repo, nil), logger.NewNop())
	r := mux.NewRouter()
	if userID != 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := auth.WithIdentity(req.Context(), auth.Identity{UserID: userID})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	h.Register(r)
	return r
}

func TestCompleteLessonHandler(t *testing.T) {
	repo := seededRepo()
	repo.addUser(models.UserStats{UserID: 1, Points: 950, LessonsCompleted: 9}, "ana")
	router := newTestRouter(t, repo, 1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/lessons/42/complete", strings.NewReader(`{"time_spent_minutes": 12}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.CompletionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(1010), resp.TotalPoints)
	assert.Equal(t, 2, resp.Level)
	assert.Len(t, resp.AchievementsUnlocked, 3)
}

func TestHandlerStatusCodes(t *testing.T) {
	repo := seededRepo()
	repo.addUser(models.UserStats{UserID: 1}, "ana")

	tests := []struct {
		name   string
		userID int64
		method string
		path   string
		body   string
		want   int
	}{
		{"no identity", 0, http.MethodGet, "/achievements", "", http.StatusUnauthorized},
		{"missing lesson", 1, http.MethodPost, "/lessons/999/complete", "", http.StatusNotFound},
		{"bad lesson id", 1, http.MethodPost, "/lessons/abc/complete", "", http.StatusBadRequest},
		{"bad body", 1, http.MethodPost, "/lessons/42/complete", "{", http.StatusBadRequest},
		{"empty solution", 1, http.MethodPost, "/challenges/7/solve", `{"solution": ""}`, http.StatusBadRequest},
		{"bad period", 1, http.MethodGet, "/leaderboard?period=yearly", "", http.StatusBadRequest},
		{"leaderboard ok", 1, http.MethodGet, "/leaderboard?period=weekly&limit=5", "", http.StatusOK},
		{"achievements ok", 1, http.MethodGet, "/achievements", "", http.StatusOK},
		{"progress ok", 1, http.MethodGet, "/progress", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, repo, tt.userID)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestLeaderboardHandlerShape(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(models.UserStats{UserID: 1, Points: 100}, "a")
	repo.addUser(models.UserStats{UserID: 2, Points: 100}, "b")
	repo.addUser(models.UserStats{UserID: 3, Points: 50}, "c")
	router := newTestRouter(t, repo, 3)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.LeaderboardResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.PeriodAllTime, resp.Period)
	require.Len(t, resp.Leaderboard, 3)
	for i, row := range resp.Leaderboard {
		assert.Equal(t, i+1, row.Rank)
	}
	assert.True(t, resp.Leaderboard[2].IsCurrentUser)
}
