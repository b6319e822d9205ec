package gamification

// Action is something a user does that can earn points.
type Action string

const (
	ActionLessonCompleted Action = "lesson_completed"
	ActionChallengeSolved Action = "challenge_solved"
	ActionCertificate     Action = "certificate_earned"
	ActionStreakBonus     Action = "streak_bonus"
)

// fallbackPoints applies when the item being completed has no reward of its own.
var fallbackPoints = map[Action]int{
	ActionLessonCompleted: 10,
	ActionChallengeSolved: 50,
	ActionCertificate:     100,
	ActionStreakBonus:     5,
}

// Award returns the point delta for an action. A configured per-item reward
// wins over the fallback table. The result is never negative; the caller
// applies it as an increment.
func Award(action Action, reward *int) int {
	if reward != nil {
		if *reward < 0 {
			return 0
		}
		return *reward
	}
	return fallbackPoints[action]
}

// DifficultyReward is the default lesson reward for a difficulty level, or
// nil when the level is unknown.
func DifficultyReward(level string) *int {
	var pts int
	switch level {
	case "beginner":
		pts = 10
	case "intermediate":
		pts = 25
	case "advanced":
		pts = 50
	default:
		return nil
	}
	return &pts
}

// LessonReward resolves the reward for a lesson: its own points_reward, then
// its difficulty level, then the lesson fallback.
func LessonReward(reward *int, level string) int {
	if reward != nil {
		return Award(ActionLessonCompleted, reward)
	}
	return Award(ActionLessonCompleted, DifficultyReward(level))
}

func ChallengeReward(reward *int) int {
	return Award(ActionChallengeSolved, reward)
}
