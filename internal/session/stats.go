package session

import "github.com/MonsterRookie/ashalytics/internal/analysis"

// stats accumulates AI-observed signal across successful turns. Overrides do
// not touch these fields; they reflect what the model saw, not what the worker
// decided.
type stats struct {
	stressScores []int
	intent       string
	mismatch     bool
}

func (s *stats) observe(r analysis.TurnResult) {
	s.stressScores = append(s.stressScores, r.StressScore)
	s.intent = r.Intent
	s.mismatch = r.Mismatch
}

func (s *stats) average() float64 {
	if len(s.stressScores) == 0 {
		return 0
	}
	sum := 0
	for _, v := range s.stressScores {
		sum += v
	}
	return float64(sum) / float64(len(s.stressScores))
}

func (s *stats) reset() {
	s.stressScores = nil
	s.intent = ""
	s.mismatch = false
}

// StatsSnapshot is the read-only view of session statistics.
type StatsSnapshot struct {
	StressAverage float64 `json:"stress_average"`
	TurnsObserved int     `json:"turns_observed"`
	Intent        string  `json:"intent"`
	Mismatch      bool    `json:"mismatch"`
}

func (s *stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		StressAverage: s.average(),
		TurnsObserved: len(s.stressScores),
		Intent:        s.intent,
		Mismatch:      s.mismatch,
	}
}
