package award

import "github.com/weboryskills/practice/internal/domain"

// XP rules
const (
	DefaultInterviewXP            = 50
	DefaultAptitudeScoreThreshold = 7
)

// XPFor returns the XP a first-time award of history earns.
// Interview sessions earn a flat amount, aptitude sessions one point per
// answer that is correct or rated at least the threshold.
func (c Config) XPFor(mode domain.Mode, history domain.History) int {
	if mode == domain.ModeInterview {
		return c.InterviewXP
	}

	xp := 0
	for _, a := range history {
		if a.IsCorrect || a.Score >= c.AptitudeScoreThreshold {
			xp++
		}
	}
	return xp
}
