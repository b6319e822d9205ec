package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/auth"
	"github.com/codebro/backend/internal/cache"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	mu        sync.Mutex
	users     map[int64]*models.User
	unlocked  map[int64]int
	getCalls  int
	recentErr error
}

func newFakeRepo() *fakeRepo {
	yesterday := fixedNow.Add(-24 * time.Hour)
	return &fakeRepo{
		users: map[int64]*models.User{
			1: {ID: 1, Email: "ana@example.com", FullName: "Ana Lopez", Username: "ana_dev", Points: 1250,
				TotalLessonsCompleted: 12, StreakCount: 4, LastActiveAt: &yesterday},
			2: {ID: 2, Email: "bo@example.com", Username: "bo", Points: 40},
		},
		unlocked: map[int64]int{1: 3},
	}
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) RecentLessons(context.Context, int64) ([]models.LessonActivity, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return []models.LessonActivity{{LessonID: 1, Title: "Variables", Status: models.StatusCompleted}}, nil
}

func (f *fakeRepo) RecentChallenges(context.Context, int64) ([]models.ChallengeActivity, error) {
	return []models.ChallengeActivity{}, nil
}

func (f *fakeRepo) CountAchievements(_ context.Context, id int64) (int, error) {
	return f.unlocked[id], nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, id int64, req models.UpdateProfileRequest, at time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if req.Username != nil {
		for otherID, other := range f.users {
			if otherID != id && other.Username == *req.Username {
				return nil, ErrUsernameTaken
			}
		}
		u.Username = *req.Username
	}
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		u.AvatarURL = *req.AvatarURL
	}
	u.UpdatedAt = at
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) Search(_ context.Context, q string, limit int) ([]models.UserSearchResult, error) {
	var out []models.UserSearchResult
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(q)) {
			out = append(out, models.UserSearchResult{ID: u.ID, Username: u.Username, Points: u.Points})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestService(t *testing.T, repo Repository, c cache.Cache) *Service {
	t.Helper()
	svc := NewService(repo, c, logger.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func strPtr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), nil)

	resp, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Profile.Level)
	assert.Equal(t, int64(750), resp.Profile.PointsToNextLevel)
	assert.Equal(t, "Advanced", resp.Profile.Tier)
	assert.Equal(t, 25, resp.Profile.TierProgress)
	assert.Equal(t, 3, resp.Stats.AchievementsUnlocked)
	assert.Equal(t, 4, resp.Stats.CurrentStreak)
	assert.Equal(t, 12, resp.Stats.LessonsCompleted)
	assert.Len(t, resp.RecentActivity.Lessons, 1)
}

func TestGetProfileToleratesActivityFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.recentErr = errors.New("timeout")
	svc := newTestService(t, repo, nil)

	resp, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, resp.RecentActivity.Lessons)
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), nil)
	_, err := svc.GetProfile(context.Background(), 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProfileCacheInvalidatedOnUpdate(t *testing.T) {
	repo := newFakeRepo()
	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	svc := newTestService(t, repo, c)
	ctx := context.Background()

	_, err := svc.GetProfile(ctx, 1)
	require.NoError(t, err)
	_, err = svc.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)

	_, err = svc.UpdateProfile(ctx, 1, models.UpdateProfileRequest{Bio: strPtr("gopher")})
	require.NoError(t, err)

	resp, err := svc.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getCalls)
	assert.Equal(t, "gopher", resp.Profile.Bio)
}

func TestUpdateProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     models.UpdateProfileRequest
		wantErr error
	}{
		{"valid username", models.UpdateProfileRequest{Username: strPtr("new-name_1")}, nil},
		{"too short", models.UpdateProfileRequest{Username: strPtr("ab")}, apperr.ErrValidation},
		{"too long", models.UpdateProfileRequest{Username: strPtr("abcdefghijklmnopqrstu")}, apperr.ErrValidation},
		{"bad chars", models.UpdateProfileRequest{Username: strPtr("ana dev")}, apperr.ErrValidation},
		{"free name", models.UpdateProfileRequest{Username: strPtr("bo_")}, nil},
		{"collision", models.UpdateProfileRequest{Username: strPtr("bo")}, apperr.ErrValidation},
		{"brackets stripped to valid", models.UpdateProfileRequest{Username: strPtr(" <ana> ")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, newFakeRepo(), nil)
			_, err := svc.UpdateProfile(context.Background(), 1, tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateProfileSanitizes(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), nil)
	resp, err := svc.UpdateProfile(context.Background(), 1, models.UpdateProfileRequest{
		FullName: strPtr("  Ana <b>Lopez</b> "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana bLopez/b", resp.Profile.FullName)
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  hello ", "hello"},
		{"<script>x</script>", "scriptx/script"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in))
	}
}

func TestSearch(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), nil)

	resp, err := svc.Search(context.Background(), "  ANA ")
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, 2, resp.Users[0].Level)

	_, err = svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

func TestHandlerRoutes(t *testing.T) {
	tests := []struct {
		name   string
		userID int64
		method string
		path   string
		body   string
		want   int
	}{
		{"profile", 1, http.MethodGet, "/profile", "", http.StatusOK},
		{"profile unknown", 99, http.MethodGet, "/profile", "", http.StatusNotFound},
		{"anonymous", 0, http.MethodGet, "/profile", "", http.StatusUnauthorized},
		{"patch ok", 1, http.MethodPatch, "/profile", `{"bio":"hi"}`, http.StatusOK},
		{"patch bad username", 1, http.MethodPatch, "/profile", `{"username":"x"}`, http.StatusBadRequest},
		{"patch bad json", 1, http.MethodPatch, "/profile", `{`, http.StatusBadRequest},
		{"search", 1, http.MethodGet, "/users/search?q=bo", "", http.StatusOK},
		{"search empty", 1, http.MethodGet, "/users/search", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(newTestService(t, newFakeRepo(), nil), logger.NewNop())
			r := mux.NewRouter()
			h.Register(r)
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.userID != 0 {
				req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: tt.userID}))
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSearchHandlerShape(t *testing.T) {
	h := NewHandler(newTestService(t, newFakeRepo(), nil), logger.NewNop())
	r := mux.NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/users/search?q=ana", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 2}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.UserSearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "ana_dev", body.Users[0].Username)
}
