package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/auth"
	"github.com/codebro/backend/internal/cache"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/middleware"
	"github.com/codebro/backend/internal/models"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	users     map[int64]models.User
	statsArgs []time.Time
}

func newFakeRepo(n int) *fakeRepo {
	f := &fakeRepo{users: map[int64]models.User{}}
	for i := 1; i <= n; i++ {
		f.users[int64(i)] = models.User{
			ID:        int64(i),
			Username:  "user",
			Points:    int64(i * 600),
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		}
	}
	return f
}

func (f *fakeRepo) Stats(_ context.Context, recentSince, todayStart, activeSince time.Time) (*models.AdminStats, error) {
	f.statsArgs = []time.Time{recentSince, todayStart, activeSince}
	return &models.AdminStats{TotalUsers: len(f.users)}, nil
}

func (f *fakeRepo) ListUsers(_ context.Context, limit, offset int) ([]models.User, int, error) {
	var all []models.User
	for _, u := range f.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []models.User{}, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (f *fakeRepo) DeleteUser(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func newTestService(t *testing.T, repo Repository, c cache.Cache) *Service {
	t.Helper()
	svc := NewService(repo, c, logger.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestStatsWindows(t *testing.T) {
	repo := newFakeRepo(3)
	resp, err := newTestService(t, repo, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Stats.TotalUsers)
	require.Len(t, repo.statsArgs, 3)
	assert.Equal(t, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), repo.statsArgs[0])
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), repo.statsArgs[1])
	assert.Equal(t, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), repo.statsArgs[2])
}

func TestListUsersPagination(t *testing.T) {
	svc := newTestService(t, newFakeRepo(5), nil)

	tests := []struct {
		name                string
		page, limit         int
		wantPage, wantLimit int
		wantLen, wantPages  int
	}{
		{"first page", 1, 2, 1, 2, 2, 3},
		{"last page", 3, 2, 3, 2, 1, 3},
		{"past end", 9, 2, 9, 2, 0, 3},
		{"defaults", 0, 0, 1, DefaultPageSize, 5, 1},
		{"clamped", 1, 10000, 1, MaxPageSize, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.ListUsers(context.Background(), tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, resp.Page)
			assert.Equal(t, tt.wantLimit, resp.Limit)
			assert.Len(t, resp.Users, tt.wantLen)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
			assert.Equal(t, 5, resp.Total)
		})
	}
}

func TestListUsersCarriesLevel(t *testing.T) {
	resp, err := newTestService(t, newFakeRepo(2), nil).ListUsers(context.Background(), 1, 10)
	require.NoError(t, err)
	// Newest first: user 2 has 1200 points.
	assert.Equal(t, int64(2), resp.Users[0].ID)
	assert.Equal(t, 2, resp.Users[0].Level)
	assert.Equal(t, 1, resp.Users[1].Level)
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeRepo(3)
	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, cache.LeaderboardPrefix+"all_time:100:1", []byte("{}"), time.Minute))
	require.NoError(t, c.Set(ctx, cache.ProfilePrefix+"2", []byte("{}"), time.Minute))

	svc := newTestService(t, repo, c)
	require.NoError(t, svc.DeleteUser(ctx, 1, 2))
	assert.NotContains(t, repo.users, int64(2))
	assert.Equal(t, 0, c.Len())

	assert.ErrorIs(t, svc.DeleteUser(ctx, 1, 2), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, 1, 1), apperr.ErrValidation)
}

func newAdminRouter(t *testing.T, repo Repository) *mux.Router {
	t.Helper()
	h := NewHandler(newTestService(t, repo, nil), logger.NewNop())
	r := mux.NewRouter()
	r.Use(middleware.RequireRole(auth.RoleAdmin, logger.NewNop()))
	h.Register(r)
	return r
}

func TestHandlerRequiresAdminRole(t *testing.T) {
	tests := []struct {
		name   string
		id     auth.Identity
		method string
		path   string
		want   int
	}{
		{"plain user stats", auth.Identity{UserID: 1}, http.MethodGet, "/admin/stats", http.StatusForbidden},
		{"admin-looking email", auth.Identity{UserID: 1, Email: "admin@example.com"}, http.MethodGet, "/admin/stats", http.StatusForbidden},
		{"admin stats", auth.Identity{UserID: 1, Roles: []string{auth.RoleAdmin}}, http.MethodGet, "/admin/stats", http.StatusOK},
		{"admin users", auth.Identity{UserID: 1, Roles: []string{auth.RoleAdmin}}, http.MethodGet, "/admin/users?page=1&limit=2", http.StatusOK},
		{"admin delete", auth.Identity{UserID: 1, Roles: []string{auth.RoleAdmin}}, http.MethodDelete, "/admin/users/3", http.StatusOK},
		{"admin delete missing", auth.Identity{UserID: 1, Roles: []string{auth.RoleAdmin}}, http.MethodDelete, "/admin/users/99", http.StatusNotFound},
		{"plain user delete", auth.Identity{UserID: 1}, http.MethodDelete, "/admin/users/3", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAdminRouter(t, newFakeRepo(3))
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req = req.WithContext(auth.WithIdentity(req.Context(), tt.id))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestStatsHandlerShape(t *testing.T) {
	r := newAdminRouter(t, newFakeRepo(4))
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 1, Roles: []string{auth.RoleAdmin}}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.AdminStatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 4, body.Stats.TotalUsers)
}
