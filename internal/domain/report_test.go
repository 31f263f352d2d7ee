package domain

import "testing"

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name    string
		history History
		want    Metrics
	}{
		{
			name:    "empty",
			history: History{},
			want:    Metrics{},
		},
		{
			name:    "half correct",
			history: History{{Score: 8, IsCorrect: true}, {Score: 3}},
			want:    Metrics{TotalQuestions: 2, Correct: 1, Accuracy: 50, AvgRawScore: 5.5},
		},
		{
			name:    "rounds accuracy",
			history: History{{Score: 9, IsCorrect: true}, {Score: 9, IsCorrect: true}, {Score: 0}},
			want:    Metrics{TotalQuestions: 3, Correct: 2, Accuracy: 67, AvgRawScore: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeMetrics(tt.history); got != tt.want {
				t.Errorf("ComputeMetrics() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	for in, want := range map[int]int{-5: 0, 0: 0, 73: 73, 100: 100, 140: 100} {
		if got := ClampScore(in); got != want {
			t.Errorf("ClampScore(%d) = %d, want %d", in, got, want)
		}
	}
}
