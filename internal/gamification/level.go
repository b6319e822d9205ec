package gamification

const pointsPerLevel = 1000

// Level is the numeric level derived from cumulative points.
type Level struct {
	Level        int   `json:"level"`
	PointsToNext int64 `json:"points_to_next_level"`
}

// LevelOf derives the level for a non-negative point total. Callers clamp with
// ClampPoints first.
func LevelOf(points int64) Level {
	lvl := points/pointsPerLevel + 1
	return Level{
		Level:        int(lvl),
		PointsToNext: lvl*pointsPerLevel - points,
	}
}

func ClampPoints(points int64) int64 {
	if points < 0 {
		return 0
	}
	return points
}

// Tier is a named band of cumulative points, shown on profiles.
type Tier struct {
	Name      string
	Threshold int64
}

var tiers = []Tier{
	{"Novice", 0},
	{"Apprentice", 100},
	{"Intermediate", 500},
	{"Advanced", 1000},
	{"Expert", 2000},
	{"Master", 5000},
}

// TierOf returns the highest tier whose threshold is <= points.
func TierOf(points int64) Tier {
	current := tiers[0]
	for _, t := range tiers {
		if points >= t.Threshold {
			current = t
		}
	}
	return current
}

// ProgressToNextTier is the rounded percentage of the way from the current
// tier threshold to the next one. It is 100 at or above the top tier.
func ProgressToNextTier(points int64) int {
	points = ClampPoints(points)
	for i := 0; i < len(tiers)-1; i++ {
		lo, hi := tiers[i].Threshold, tiers[i+1].Threshold
		if points >= lo && points < hi {
			return int(((points-lo)*100 + (hi-lo)/2) / (hi - lo))
		}
	}
	return 100
}
