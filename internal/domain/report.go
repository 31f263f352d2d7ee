package domain

import "math"

// Metrics are the hard numbers computed from a history without the oracle
type Metrics struct {
	TotalQuestions int     `json:"totalQuestions"`
	Correct        int     `json:"correct"`
	Accuracy       int     `json:"accuracy"`
	AvgRawScore    float64 `json:"avgRawScore"`
}

// ComputeMetrics derives accuracy and average raw score.
// Both are 0 for an empty history.
func ComputeMetrics(h History) Metrics {
	m := Metrics{TotalQuestions: len(h)}
	if m.TotalQuestions == 0 {
		return m
	}

	sum := 0
	for _, a := range h {
		if a.IsCorrect {
			m.Correct++
		}
		sum += a.Score
	}

	m.Accuracy = int(math.Round(100 * float64(m.Correct) / float64(m.TotalQuestions)))
	m.AvgRawScore = float64(sum) / float64(m.TotalQuestions)
	return m
}

// Report bounds
const (
	MinOverallScore  = 0
	MaxOverallScore  = 100
	MaxFeedbackItems = 2
)

// Report is the qualitative and quantitative result of a session
type Report struct {
	Mode         Mode     `json:"mode"`
	Topic        string   `json:"topic"`
	Metrics      Metrics  `json:"metrics"`
	OverallScore int      `json:"overallScore"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Tips         []string `json:"tips"`
	Summary      string   `json:"summary"`
	Model        string   `json:"model,omitempty"`
}

// ClampScore bounds an oracle score to [0,100]
func ClampScore(score int) int {
	return max(MinOverallScore, min(MaxOverallScore, score))
}

// AwardOutcome is the XP and streak result of one award attempt
type AwardOutcome struct {
	XPEarned       int  `json:"xpEarned"`
	StreakBonus    int  `json:"streakBonus"`
	TotalXP        int  `json:"totalXp"`
	CurrentStreak  int  `json:"currentStreak"`
	AlreadyAwarded bool `json:"alreadyAwarded"`
}

// Analysis merges a report with the award outcome
type Analysis struct {
	Report
	AwardOutcome
}
