package priority

// Level is the visual band of a score.
type Level string

// Score bands.
const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Badge is the wait-time badge shown on an evaluator card.
type Badge string

// Wait badges.
const (
	BadgeCritical Badge = "critico"
	BadgeUrgent   Badge = "urgente"
	BadgeNormal   Badge = "normal"
)

const (
	highScore   = 4
	mediumScore = 2
	urgentScore = 3

	criticalWaitHours = 2 // whole hours, so critical starts at 180 minutes
	urgentWaitMinutes = 45
)

// Classify maps a score from either scheme to its band. Styling only.
func Classify(score int) Level {
	switch {
	case score >= highScore:
		return LevelHigh
	case score >= mediumScore:
		return LevelMedium
	default:
		return LevelLow
	}
}

// IsUrgent reports whether a supervisor urgency earns the "urgente" flag.
func IsUrgent(urgency int) bool {
	return urgency >= urgentScore
}

// WaitBadge classifies a wait purely by elapsed minutes. Critical counts
// whole hours waited, urgent counts minutes.
func WaitBadge(elapsedMinutes int) Badge {
	switch {
	case elapsedMinutes/60 > criticalWaitHours:
		return BadgeCritical
	case elapsedMinutes > urgentWaitMinutes:
		return BadgeUrgent
	default:
		return BadgeNormal
	}
}
