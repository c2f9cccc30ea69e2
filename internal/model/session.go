package model

import (
	"time"

	"github.com/google/uuid"
)

// Unanswered marks an answer slot with no recorded choice.
const Unanswered = -1

// SessionStatus enumerates session lifecycle states.
type SessionStatus string

const (
	SessionStatusRunning  SessionStatus = "RUNNING"
	SessionStatusFinished SessionStatus = "FINISHED"
)

// NavigationPolicy selects how a candidate may move between questions.
type NavigationPolicy string

const (
	// NavigationFree allows jumping to any question at any time.
	NavigationFree NavigationPolicy = "free"
	// NavigationForwardOnly forbids revisiting questions past maxReached.
	NavigationForwardOnly NavigationPolicy = "forward"
)

// SessionState is the full mutable state of one candidate's exam attempt.
// It is serialized verbatim to the session store after every mutation so a
// page reload can resume mid-session.
type SessionState struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     string        `json:"exam_id"`
	Candidate  Candidate     `json:"candidate"`
	Questions  []Question    `json:"questions"` // order fixed at session start
	Answers    []int         `json:"answers"`   // option index per question, Unanswered if none
	Current    int           `json:"current"`
	MaxReached int           `json:"max_reached"`
	TotalTime  int           `json:"total_time"` // seconds
	TimeLeft   int           `json:"time_left"`  // seconds, recomputed from StartedAt on resume
	StartedAt  time.Time     `json:"started_at"`
	Status     SessionStatus `json:"status"`
}

// Snapshot is the candidate-facing view of a session: everything the client
// needs to render, with correctness flags stripped.
type Snapshot struct {
	ID         uuid.UUID      `json:"id"`
	ExamID     string         `json:"exam_id"`
	Candidate  Candidate      `json:"candidate"`
	Questions  []QuestionView `json:"questions"`
	Answers    []int          `json:"answers"`
	Current    int            `json:"current"`
	MaxReached int            `json:"max_reached"`
	TotalTime  int            `json:"total_time"`
	TimeLeft   int            `json:"time_left"`
	Status     SessionStatus  `json:"status"`
}

// Snapshot builds the candidate-facing view from the state.
func (s *SessionState) Snapshot() Snapshot {
	views := make([]QuestionView, len(s.Questions))
	for i, q := range s.Questions {
		views[i] = q.View()
	}
	answers := make([]int, len(s.Answers))
	copy(answers, s.Answers)
	return Snapshot{
		ID:         s.ID,
		ExamID:     s.ExamID,
		Candidate:  s.Candidate,
		Questions:  views,
		Answers:    answers,
		Current:    s.Current,
		MaxReached: s.MaxReached,
		TotalTime:  s.TotalTime,
		TimeLeft:   s.TimeLeft,
		Status:     s.Status,
	}
}

// StartSessionRequest is the payload for starting (or resuming) a session.
type StartSessionRequest struct {
	ExamID      string `json:"exam_id" binding:"required,min=1,max=64"`
	Name        string `json:"name" binding:"required,min=1,max=120"`
	Affiliation string `json:"affiliation" binding:"omitempty,max=120"`
	Contact     string `json:"contact" binding:"omitempty,max=120"`
}

// AnswerRequest records a choice for the current question.
type AnswerRequest struct {
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
}

// GoToRequest navigates to a question index.
type GoToRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
