package gamification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/codebro/backend/internal/models"
)

// memRepo is an in-memory Repository that mirrors the Store's transactional
// behaviour with a single mutex.
type memRepo struct {
	mu sync.Mutex

	users      map[int64]*models.UserStats
	names      map[int64]string
	lessons    map[int64]LessonInfo
	challenges map[int64]ChallengeInfo
	defs       []models.Achievement
	unlocks    map[int64]map[int64]time.Time
	lessonEv   map[int64][]models.CompletionEvent
	challEv    map[int64][]models.CompletionEvent
	doneLesson map[[2]int64]bool
	solved     map[[2]int64]bool
	attempts   map[[2]int64]int

	failUnlock    map[int64]error // achievement id -> error
	failLessonEv  map[int64]error // user id -> error
	slowChallenge map[int64]bool  // user id -> block until ctx done
	listCalls     int
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:         map[int64]*models.UserStats{},
		names:         map[int64]string{},
		lessons:       map[int64]LessonInfo{},
		challenges:    map[int64]ChallengeInfo{},
		unlocks:       map[int64]map[int64]time.Time{},
		lessonEv:      map[int64][]models.CompletionEvent{},
		challEv:       map[int64][]models.CompletionEvent{},
		doneLesson:    map[[2]int64]bool{},
		solved:        map[[2]int64]bool{},
		attempts:      map[[2]int64]int{},
		failUnlock:    map[int64]error{},
		failLessonEv:  map[int64]error{},
		slowChallenge: map[int64]bool{},
	}
}

func (m *memRepo) addUser(st models.UserStats, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := st
	m.users[st.UserID] = &cp
	m.names[st.UserID] = name
}

func (m *memRepo) GetUserStats(_ context.Context, userID int64) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetLessonReward(_ context.Context, id int64) (*LessonInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return nil, ErrLessonNotFound
	}
	return &l, nil
}

func (m *memRepo) GetChallengeReward(_ context.Context, id int64) (*ChallengeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	return &c, nil
}

func (m *memRepo) apply(u *models.UserStats, points, lessons, challenges int, at time.Time) {
	u.StreakCount = TickStreak(u.StreakCount, u.LastActiveAt, at, true)
	u.Points += int64(points)
	u.LessonsCompleted += lessons
	u.ChallengesSolved += challenges
	t := at
	u.LastActiveAt = &t
}

func (m *memRepo) CompleteLesson(_ context.Context, c LessonCompletion) (*CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[c.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}
	key := [2]int64{c.UserID, c.LessonID}
	if m.doneLesson[key] {
		return &CompletionResult{AlreadyCompleted: true, Stats: *u}, nil
	}
	m.doneLesson[key] = true
	m.apply(u, c.Points, 1, 0, c.At)
	m.lessonEv[c.UserID] = append(m.lessonEv[c.UserID], models.CompletionEvent{CompletedAt: c.At, Reward: c.Points})
	return &CompletionResult{Stats: *u}, nil
}

func (m *memRepo) SolveChallenge(_ context.Context, c ChallengeSolve) (*CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[c.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}
	key := [2]int64{c.UserID, c.ChallengeID}
	m.attempts[key]++
	if m.solved[key] {
		return &CompletionResult{AlreadyCompleted: true, Stats: *u}, nil
	}
	m.solved[key] = true
	m.apply(u, c.Points, 0, 1, c.At)
	m.challEv[c.UserID] = append(m.challEv[c.UserID], models.CompletionEvent{CompletedAt: c.At, Reward: c.Points})
	return &CompletionResult{Stats: *u}, nil
}

func (m *memRepo) ListAchievements(context.Context) ([]models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return append([]models.Achievement(nil), m.defs...), nil
}

func (m *memRepo) UnlockedAchievements(_ context.Context, userID int64) (map[int64]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]time.Time{}
	for id, at := range m.unlocks[userID] {
		out[id] = at
	}
	return out, nil
}

func (m *memRepo) UnlockAchievement(_ context.Context, userID, achievementID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUnlock[achievementID]; err != nil {
		return false, err
	}
	if m.unlocks[userID] == nil {
		m.unlocks[userID] = map[int64]time.Time{}
	}
	if _, ok := m.unlocks[userID][achievementID]; ok {
		return false, nil
	}
	m.unlocks[userID][achievementID] = at
	return true, nil
}

func (m *memRepo) UpsertAchievement(_ context.Context, a models.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.defs {
		if m.defs[i].Name == a.Name {
			a.ID = m.defs[i].ID
			m.defs[i] = a
			return nil
		}
	}
	a.ID = int64(len(m.defs) + 1)
	m.defs = append(m.defs, a)
	return nil
}

func (m *memRepo) entry(id int64) models.LeaderboardEntry {
	u := m.users[id]
	return models.LeaderboardEntry{
		UserID:           id,
		DisplayName:      m.names[id],
		Username:         m.names[id],
		Points:           u.Points,
		StreakCount:      u.StreakCount,
		LessonsCompleted: u.LessonsCompleted,
		ChallengesSolved: u.ChallengesSolved,
	}
}

func (m *memRepo) sortedEntries() []models.LeaderboardEntry {
	var out []models.LeaderboardEntry
	for id := range m.users {
		out = append(out, m.entry(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (m *memRepo) TopByPoints(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedEntries()
	SortEntries(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memRepo) GetLeaderboardEntry(_ context.Context, userID int64) (*models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	e := m.entry(userID)
	return &e, nil
}

func (m *memRepo) CountUsersAbove(_ context.Context, points int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Points > points {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListLeaderboardUsers(context.Context) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedEntries(), nil
}

func (m *memRepo) LessonEvents(_ context.Context, userID int64, since time.Time) ([]models.CompletionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLessonEv[userID]; err != nil {
		return nil, err
	}
	return filterSince(m.lessonEv[userID], since), nil
}

func (m *memRepo) ChallengeEvents(ctx context.Context, userID int64, since time.Time) ([]models.CompletionEvent, error) {
	m.mu.Lock()
	slow := m.slowChallenge[userID]
	events := filterSince(m.challEv[userID], since)
	m.mu.Unlock()
	if slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return events, nil
}

// filterSince mimics the store's SQL predicate.
func filterSince(events []models.CompletionEvent, since time.Time) []models.CompletionEvent {
	var out []models.CompletionEvent
	for _, ev := range events {
		if !ev.CompletedAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out
}

func (m *memRepo) ListStreakHolders(context.Context) ([]models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserStats
	for _, u := range m.users {
		if u.StreakCount > 0 {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memRepo) ResetStreak(_ context.Context, userID int64, streak int, _ *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	u.StreakCount = streak
	return nil
}
