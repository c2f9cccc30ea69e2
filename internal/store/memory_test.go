package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/quizrail/quizrail-backend/internal/model"
)

func sampleState() *model.SessionState {
	return &model.SessionState{
		ID:     uuid.New(),
		ExamID: "exam1",
		Questions: []model.Question{
			{Text: "q", Options: []model.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
		},
		Answers:   []int{model.Unanswered},
		TotalTime: 300,
		TimeLeft:  300,
		StartedAt: time.Now().Truncate(time.Second),
		Status:    model.SessionStatusRunning,
	}
}

func TestMemoryStore_Roundtrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	state := sampleState()

	if err := s.Save(ctx, "k", state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != state.ID || got.ExamID != state.ExamID {
		t.Errorf("identity fields lost: %+v", got)
	}
	if len(got.Questions) != 1 || !got.Questions[0].Options[0].IsCorrect {
		t.Errorf("correctness flags lost in roundtrip")
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Load(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Save(ctx, "k", sampleState())
	_ = s.Clear(ctx, "k")
	if _, err := s.Load(ctx, "k"); err != ErrNotFound {
		t.Errorf("err after Clear = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CorruptSlot(t *testing.T) {
	s := NewMemoryStore()
	s.Corrupt("k")
	if _, err := s.Load(context.Background(), "k"); err != ErrCorrupt {
		t.Errorf("err = %v, want ErrCorrupt", err)
	}
}

func TestMemoryStore_StructuralCorruption(t *testing.T) {
	cases := []struct {
		name   string
		tamper func(*model.SessionState)
	}{
		{"answers length mismatch", func(s *model.SessionState) { s.Answers = nil }},
		{"current past last question", func(s *model.SessionState) { s.Current = 99 }},
		{"current negative", func(s *model.SessionState) { s.Current = -1 }},
		{"max reached out of range", func(s *model.SessionState) { s.MaxReached = 99 }},
		{"max reached behind current", func(s *model.SessionState) {
			s.Questions = append(s.Questions, s.Questions[0])
			s.Answers = append(s.Answers, model.Unanswered)
			s.Current = 1
			s.MaxReached = 0
		}},
		{"answer past option count", func(s *model.SessionState) { s.Answers[0] = 7 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewMemoryStore()
			state := sampleState()
			tc.tamper(state)
			_ = s.Save(ctx, "k", state)
			if _, err := s.Load(ctx, "k"); err != ErrCorrupt {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}
