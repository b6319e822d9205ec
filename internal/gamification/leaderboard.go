package gamification

import (
	"sort"
	"time"

	"github.com/codebro/backend/internal/models"
)

const (
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
)

// Board is a ranked, truncated leaderboard.
type Board struct {
	Rows []models.LeaderboardRow
	// CurrentUser is set when the requesting user exists in entries but fell
	// outside the limit.
	CurrentUser *models.LeaderboardRow
}

// NormalizeLimit clamps a requested limit into [1, MaxLeaderboardLimit].
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// SortEntries orders by points descending, then user id ascending.
func SortEntries(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// Rank sorts entries in place and assigns position-based ranks: equal points
// still get consecutive ranks. currentUserID of 0 means no current user.
func Rank(entries []models.LeaderboardEntry, limit int, currentUserID int64) Board {
	SortEntries(entries)

	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}

	rows := make([]models.LeaderboardRow, 0, n)
	inTop := false
	for i := 0; i < n; i++ {
		isCurrent := currentUserID != 0 && entries[i].UserID == currentUserID
		if isCurrent {
			inTop = true
		}
		rows = append(rows, models.LeaderboardRow{
			LeaderboardEntry: entries[i],
			Rank:             i + 1,
			IsCurrentUser:    isCurrent,
		})
	}

	board := Board{Rows: rows}
	if currentUserID == 0 || inTop {
		return board
	}
	for _, e := range entries[n:] {
		if e.UserID == currentUserID {
			board.CurrentUser = &models.LeaderboardRow{
				LeaderboardEntry: e,
				Rank:             FallbackRank(entries, e.Points),
				IsCurrentUser:    true,
			}
			break
		}
	}
	return board
}

// FallbackRank is 1 + the number of entries with strictly more points.
func FallbackRank(entries []models.LeaderboardEntry, points int64) int {
	above := 0
	for _, e := range entries {
		if e.Points > points {
			above++
		}
	}
	return above + 1
}

// SumWindow totals the rewards of events completed at or after cutoff.
func SumWindow(events []models.CompletionEvent, cutoff time.Time) (points int64, count int) {
	for _, ev := range events {
		if ev.CompletedAt.Before(cutoff) {
			continue
		}
		if ev.Reward > 0 {
			points += int64(ev.Reward)
		}
		count++
	}
	return points, count
}

// WindowStart returns the cutoff for a windowed period and false for all-time.
func WindowStart(period models.LeaderboardPeriod, now time.Time) (time.Time, bool) {
	switch period {
	case models.PeriodWeekly:
		return now.AddDate(0, 0, -7), true
	case models.PeriodMonthly:
		return now.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}
