package service

// DefaultEscalationThreshold is the suspicion score above which activity is escalated.
const DefaultEscalationThreshold = 75

const (
	rapidClickingWeight    = 2
	rapidClickingCap       = 60
	unusualNavigationScore = 30
	automatedBehaviorScore = 80
	defaultSuspicionScore  = 20
)

// SuspicionScore converts an activity type and observed count into a score in [0, 100].
// Negative counts are treated as zero.
func SuspicionScore(activityType string, count int) int {
	if count < 0 {
		count = 0
	}
	var score int
	switch normalizeType(activityType) {
	case ActivityRapidClicking:
		score = min(min(count, rapidClickingCap)*rapidClickingWeight, rapidClickingCap)
	case ActivityUnusualNavigation:
		score = unusualNavigationScore
	case ActivityAutomatedBehavior:
		score = automatedBehaviorScore
	default:
		score = defaultSuspicionScore
	}
	return clampScore(score)
}

func clampScore(score int) int {
	return max(0, min(score, 100))
}

// Scorer decides escalation against a configurable threshold.
type Scorer struct {
	threshold int
}

// NewScorer returns a Scorer. A non-positive threshold selects DefaultEscalationThreshold.
func NewScorer(threshold int) Scorer {
	if threshold <= 0 {
		threshold = DefaultEscalationThreshold
	}
	return Scorer{threshold: threshold}
}

func (s Scorer) Threshold() int { return s.threshold }

// ShouldEscalate reports whether score strictly exceeds the threshold.
func (s Scorer) ShouldEscalate(score int) bool {
	return score > s.threshold
}
