package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/config"
	"github.com/quizrail/quizrail-backend/internal/content"
	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/store"
)

type stubProvider struct {
	doc *model.ExamDocument
}

func (p stubProvider) List(_ context.Context) ([]model.Exam, error) {
	return []model.Exam{{ID: "quiz-1", Title: p.doc.Title, QuestionCount: len(p.doc.Questions), TotalTime: p.doc.Duration()}}, nil
}

func (p stubProvider) Get(_ context.Context, examID string) (*model.ExamDocument, error) {
	if examID != "quiz-1" {
		return nil, content.ErrExamNotFound
	}
	return p.doc, nil
}

type captureSink struct {
	mu      sync.Mutex
	results []model.Result
}

func (s *captureSink) Submit(_ context.Context, result model.Result) error {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	return nil
}

type captureArchiver struct {
	mu      sync.Mutex
	results []model.Result
}

func (a *captureArchiver) Archive(_ context.Context, res model.Result) error {
	a.mu.Lock()
	a.results = append(a.results, res)
	a.mu.Unlock()
	return nil
}

func (a *captureArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

func rawQuestion(t *testing.T, prompt string, options []string, correct int) model.RawQuestion {
	t.Helper()
	raw := model.RawQuestion{}
	q, _ := json.Marshal(prompt)
	raw["q"] = q
	opts, _ := json.Marshal(options)
	raw["options"] = opts
	c, _ := json.Marshal(correct)
	raw["correct"] = c
	return raw
}

func newTestService(t *testing.T) (*SessionService, *store.MemoryStore, *captureArchiver) {
	t.Helper()
	doc := &model.ExamDocument{
		Title:     "Quiz One",
		TotalTime: 60,
		Questions: []model.RawQuestion{
			rawQuestion(t, "first", []string{"a", "b"}, 0),
			rawQuestion(t, "second", []string{"a", "b", "c"}, 2),
		},
	}
	st := store.NewMemoryStore()
	arch := &captureArchiver{}
	svc := NewSessionService(
		stubProvider{doc: doc},
		st,
		&captureSink{},
		arch,
		model.NavigationFree,
		zerolog.Nop(),
	)
	return svc, st, arch
}

func startReq() model.StartSessionRequest {
	return model.StartSessionRequest{ExamID: "quiz-1", Name: "Ada Lovelace"}
}

func TestStart_NewSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	eng, err := svc.Start(context.Background(), startReq())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := eng.Snapshot()
	if snap.Status != model.SessionStatusRunning {
		t.Errorf("status = %s, want RUNNING", snap.Status)
	}
	if len(snap.Questions) != 2 {
		t.Errorf("questions = %d, want 2", len(snap.Questions))
	}
	if snap.TimeLeft != 60 {
		t.Errorf("time_left = %d, want 60", snap.TimeLeft)
	}
}

func TestStart_UnknownExam(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := startReq()
	req.ExamID = "no-such-exam"
	if _, err := svc.Start(context.Background(), req); err == nil {
		t.Fatal("expected error for unknown exam")
	}
}

func TestStart_SameCandidateResumes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, startReq())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := first.SelectAnswer(1); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	second, err := svc.Start(ctx, startReq())
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if first.ID() != second.ID() {
		t.Errorf("second start got a new session %s, want %s", second.ID(), first.ID())
	}
	if got := second.Snapshot().Answers[0]; got != 1 {
		t.Errorf("answers[0] = %d, want 1", got)
	}
}

func TestStart_ConcurrentSameCandidate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const starters = 8
	ids := make([]uuid.UUID, starters)
	errs := make([]error, starters)

	var wg sync.WaitGroup
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eng, err := svc.Start(ctx, startReq())
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = eng.ID()
		}(i)
	}
	wg.Wait()

	for i := 0; i < starters; i++ {
		if errs[i] != nil {
			t.Fatalf("Start %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("concurrent starts produced distinct sessions: %s vs %s", ids[i], ids[0])
		}
	}
}

func TestStart_DifferentCandidateGetsOwnSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, startReq())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	req := startReq()
	req.Name = "Grace Hopper"
	second, err := svc.Start(ctx, req)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if first.ID() == second.ID() {
		t.Error("different candidates share a session")
	}
}

func TestStart_TamperedIndexesFallBackToFresh(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	// Plant a decodable slot whose position points past the last question.
	// Start must discard it, and the session it hands out must stay
	// answerable rather than resume into the broken position.
	state := &model.SessionState{
		ID:     uuid.New(),
		ExamID: "quiz-1",
		Questions: []model.Question{
			{Text: "first", Options: []model.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
			{Text: "second", Options: []model.Option{{Text: "a"}, {Text: "b", IsCorrect: true}}},
		},
		Answers:    []int{model.Unanswered, model.Unanswered},
		Current:    99,
		MaxReached: 99,
		TotalTime:  60,
		TimeLeft:   60,
		StartedAt:  time.Now(),
		Status:     model.SessionStatusRunning,
	}
	slot := config.CacheKey.SessionSlotKey("quiz-1", "ada-lovelace")
	if err := st.Save(ctx, slot, state); err != nil {
		t.Fatalf("Save tampered state: %v", err)
	}

	eng, err := svc.Start(ctx, startReq())
	if err != nil {
		t.Fatalf("Start after tampering: %v", err)
	}
	if eng.ID() == state.ID {
		t.Error("tampered slot resumed instead of starting fresh")
	}
	if err := eng.SelectAnswer(0); err != nil {
		t.Errorf("SelectAnswer on fresh session: %v", err)
	}
}

func TestStart_CorruptStateFallsBackToFresh(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	slot := config.CacheKey.SessionSlotKey("quiz-1", "ada-lovelace")
	st.Corrupt(slot)

	eng, err := svc.Start(ctx, startReq())
	if err != nil {
		t.Fatalf("Start after corruption: %v", err)
	}
	if eng.Status() != model.SessionStatusRunning {
		t.Errorf("status = %s, want RUNNING", eng.Status())
	}
}

func TestFinish_FeedsArchiverAndServesResult(t *testing.T) {
	svc, _, arch := newTestService(t)
	ctx := context.Background()

	eng, err := svc.Start(ctx, startReq())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := svc.Result(eng.ID()); err != ErrNotFinished {
		t.Errorf("Result before finish = %v, want ErrNotFinished", err)
	}

	eng.Finish(false)

	if arch.count() != 1 {
		t.Errorf("archiver received %d results, want 1", arch.count())
	}

	res, err := svc.Result(eng.ID())
	if err != nil {
		t.Fatalf("Result after finish: %v", err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
	if res.Candidate.Name != "Ada Lovelace" {
		t.Errorf("candidate = %q", res.Candidate.Name)
	}
}

func TestResult_UnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Result(uuid.Nil); err != ErrSessionNotFound {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestCandidateKey_Normalization(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ada Lovelace", "ada-lovelace"},
		{"  Ada   LOVELACE ", "ada-lovelace"},
		{"ada-lovelace", "ada-lovelace"},
	}
	for _, tc := range cases {
		if got := candidateKey(tc.in); got != tc.want {
			t.Errorf("candidateKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
