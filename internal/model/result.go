package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the terminal artifact of a session. It is produced exactly once,
// at finish, and never mutated afterwards.
type Result struct {
	SessionID   uuid.UUID `json:"session_id"`
	Candidate   Candidate `json:"candidate"`
	ExamID      string    `json:"exam_id"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	TimeTaken   int       `json:"time_taken"` // seconds
	SubmittedAt time.Time `json:"submitted_at"`
	TimeExpired bool      `json:"time_expired"`
}

// ExamStats is a per-exam aggregate over archived results, as shown on the
// dashboard.
type ExamStats struct {
	ExamID       string  `json:"exam_id"`
	Participants int     `json:"participants"`
	BestScore    int     `json:"best_score"`
	AvgScore     float64 `json:"avg_score"`
	AvgTime      float64 `json:"avg_time"` // seconds
}
