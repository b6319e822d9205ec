package gamification

import (
	"testing"

	"github.com/codebro/backend/internal/models"
)

var testDefs = []models.Achievement{
	{ID: 3, Name: "Dedicated Learner", CriteriaType: models.CriteriaLessonsCompleted, CriteriaValue: 10},
	{ID: 1, Name: "First Steps", CriteriaType: models.CriteriaLessonsCompleted, CriteriaValue: 1},
	{ID: 7, Name: "Rising Star", CriteriaType: models.CriteriaPointsEarned, CriteriaValue: 1000},
	{ID: 5, Name: "Problem Solver", CriteriaType: models.CriteriaChallengesSolved, CriteriaValue: 1},
	{ID: 6, Name: "Week Warrior", CriteriaType: models.CriteriaStreakDays, CriteriaValue: 7},
	{ID: 9, Name: "Mystery", CriteriaType: models.CriteriaType("lines_of_code"), CriteriaValue: 0},
}

func ids(as []models.Achievement) []int64 {
	out := make([]int64, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		name  string
		stats models.UserStats
		want  []int64
	}{
		{"nothing yet", models.UserStats{}, nil},
		{"nine lessons", models.UserStats{LessonsCompleted: 9}, []int64{1}},
		{"ten lessons", models.UserStats{LessonsCompleted: 10}, []int64{1, 3}},
		{"points boundary", models.UserStats{Points: 999}, nil},
		{"points met", models.UserStats{Points: 1000}, []int64{7}},
		{"challenge and streak", models.UserStats{ChallengesSolved: 1, StreakCount: 7}, []int64{5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Evaluate(tt.stats, testDefs, nil))
			if !equalIDs(got, tt.want) {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateSkipsUnlocked(t *testing.T) {
	stats := models.UserStats{LessonsCompleted: 10, Points: 1010}

	first := Evaluate(stats, testDefs, map[int64]bool{})
	if !equalIDs(ids(first), []int64{1, 3, 7}) {
		t.Fatalf("first Evaluate() = %v", ids(first))
	}

	unlocked := map[int64]bool{}
	for _, a := range first {
		unlocked[a.ID] = true
	}
	if second := Evaluate(stats, testDefs, unlocked); len(second) != 0 {
		t.Errorf("second Evaluate() = %v, want none", ids(second))
	}
}

func TestEvaluateOrderIndependent(t *testing.T) {
	stats := models.UserStats{LessonsCompleted: 50, Points: 5000, ChallengesSolved: 3, StreakCount: 10}
	reversed := make([]models.Achievement, len(testDefs))
	for i, a := range testDefs {
		reversed[len(testDefs)-1-i] = a
	}

	a := ids(Evaluate(stats, testDefs, nil))
	b := ids(Evaluate(stats, reversed, nil))
	if !equalIDs(a, b) {
		t.Errorf("Evaluate depends on input order: %v vs %v", a, b)
	}
}

func TestEvaluateDuplicateDefinitions(t *testing.T) {
	defs := append([]models.Achievement{}, testDefs[1], testDefs[1])
	got := Evaluate(models.UserStats{LessonsCompleted: 1}, defs, nil)
	if len(got) != 1 {
		t.Errorf("duplicate definitions unlocked %d times", len(got))
	}
}
