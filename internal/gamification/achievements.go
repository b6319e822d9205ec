package gamification

import (
	"sort"

	"github.com/codebro/backend/internal/models"
)

// statValue reads the stat a criteria type refers to. Unknown types report
// false and never unlock.
func statValue(stats models.UserStats, ct models.CriteriaType) (int64, bool) {
	switch ct {
	case models.CriteriaLessonsCompleted:
		return int64(stats.LessonsCompleted), true
	case models.CriteriaPointsEarned:
		return stats.Points, true
	case models.CriteriaChallengesSolved:
		return int64(stats.ChallengesSolved), true
	case models.CriteriaStreakDays:
		return int64(stats.StreakCount), true
	default:
		return 0, false
	}
}

// Qualifies reports whether stats meet a single achievement's criteria.
func Qualifies(stats models.UserStats, a models.Achievement) bool {
	v, ok := statValue(stats, a.CriteriaType)
	return ok && v >= a.CriteriaValue
}

// Evaluate returns the definitions newly satisfied by stats, skipping any id
// already in unlocked. The result is ordered by ascending id.
func Evaluate(stats models.UserStats, defs []models.Achievement, unlocked map[int64]bool) []models.Achievement {
	var out []models.Achievement
	seen := make(map[int64]bool, len(defs))
	for _, a := range defs {
		if unlocked[a.ID] || seen[a.ID] {
			continue
		}
		if Qualifies(stats, a) {
			out = append(out, a)
			seen[a.ID] = true
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
