package domain

import (
	"time"
)

type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Terminal reports whether a game in this status will never transition again.
func (s AnalysisStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Game struct {
	ID        int64
	PGN       string
	Status    AnalysisStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Mistakes  []Mistake
}

// Mistake is a single move whose evaluation, from the mover's perspective,
// dropped by at least the configured threshold. Evaluations are centipawns
// from White's perspective; EvalDrop is always positive for the mover.
type Mistake struct {
	ID         int64
	GameID     int64
	MoveNumber int
	MoveSAN    string
	EvalBefore int
	EvalAfter  int
	EvalDrop   int
	FENBefore  string
	Commentary *string
	CreatedAt  time.Time
}
