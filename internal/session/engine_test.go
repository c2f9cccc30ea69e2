package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/store"
)

func rawQuestion(t *testing.T, text string, options []string, correct int) model.RawQuestion {
	t.Helper()
	doc := map[string]interface{}{"q": text, "options": options}
	if correct >= 0 {
		doc["correct"] = correct
	}
	blob, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	var raw model.RawQuestion
	if err := json.Unmarshal(blob, &raw); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return raw
}

// threeQuestions yields distinct questions whose correct answer is always
// the option text "right", so tests can find it after shuffling.
func threeQuestions(t *testing.T) []model.RawQuestion {
	t.Helper()
	return []model.RawQuestion{
		rawQuestion(t, "q0", []string{"right", "wrong-a", "wrong-b"}, 0),
		rawQuestion(t, "q1", []string{"wrong-a", "right", "wrong-b"}, 1),
		rawQuestion(t, "q2", []string{"wrong-a", "wrong-b", "right"}, 2),
	}
}

type engineFixture struct {
	eng      *Engine
	mem      *store.MemoryStore
	key      string
	mu       sync.Mutex
	finished []model.Result
}

func newFixture(t *testing.T, raws []model.RawQuestion, totalTime int, policy model.NavigationPolicy) *engineFixture {
	t.Helper()
	f := &engineFixture{
		mem: store.NewMemoryStore(),
		key: "session:test:slot",
	}
	cfg := Config{
		ExamID:    "exam1",
		Candidate: model.Candidate{Name: "Ada"},
		TotalTime: totalTime,
		Policy:    policy,
		Store:     f.mem,
		StoreKey:  f.key,
		Log:       zerolog.Nop(),
		OnFinish: func(r model.Result) {
			f.mu.Lock()
			f.finished = append(f.finished, r)
			f.mu.Unlock()
		},
	}
	eng, err := New(cfg, raws, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.eng = eng
	return f
}

func (f *engineFixture) finishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finished)
}

// correctIndexFor locates the shuffled position of the correct option.
func correctIndexFor(q model.Question) int {
	for i, o := range q.Options {
		if o.IsCorrect {
			return i
		}
	}
	return -1
}

func TestShuffleQuestions_UniformPermutations(t *testing.T) {
	questions := []model.Question{
		{Text: "A"}, {Text: "B"}, {Text: "C"},
	}

	const runs = 6000
	rng := rand.New(rand.NewSource(1))
	counts := make(map[string]int, 6)

	for i := 0; i < runs; i++ {
		qs := make([]model.Question, len(questions))
		copy(qs, questions)
		shuffleQuestions(qs, rng)

		var sb strings.Builder
		for _, q := range qs {
			sb.WriteString(q.Text)
		}
		counts[sb.String()]++
	}

	if len(counts) != 6 {
		t.Fatalf("saw %d permutations, want 6: %v", len(counts), counts)
	}

	// Chi-square against uniform; 20.52 is the df=5 critical value at
	// p=0.001, padded a little since the seed is fixed anyway.
	expected := float64(runs) / 6
	chi2 := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	if chi2 > 25 {
		t.Errorf("chi-square = %.2f, permutation distribution is not uniform: %v", chi2, counts)
	}
}

func TestShuffleOptions_CorrectnessPreserved(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		opts := []model.Option{
			{Text: "a"}, {Text: "b", IsCorrect: true}, {Text: "c"}, {Text: "d"},
		}
		shuffleOptions(opts, rng)

		correct := 0
		for _, o := range opts {
			if o.IsCorrect {
				correct++
				if o.Text != "b" {
					t.Fatalf("correctness tag moved to %q", o.Text)
				}
			}
		}
		if correct != 1 {
			t.Fatalf("got %d correct options, want 1", correct)
		}
	}
}

func TestNew_ShuffleKeepsQuestionData(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)
	snap := f.eng.Snapshot()

	if len(snap.Questions) != 3 {
		t.Fatalf("got %d questions, want 3", len(snap.Questions))
	}
	seen := map[string]bool{}
	for _, q := range snap.Questions {
		seen[q.Text] = true
	}
	for _, want := range []string{"q0", "q1", "q2"} {
		if !seen[want] {
			t.Errorf("question %q lost in shuffle", want)
		}
	}
	for i, a := range snap.Answers {
		if a != model.Unanswered {
			t.Errorf("answers[%d] = %d, want unanswered", i, a)
		}
	}
}

func TestNew_DropsOptionlessQuestions(t *testing.T) {
	raws := []model.RawQuestion{
		rawQuestion(t, "ok", []string{"a", "b"}, 0),
		rawQuestion(t, "broken", nil, 0),
	}
	f := newFixture(t, raws, 300, model.NavigationFree)
	if n := len(f.eng.Snapshot().Questions); n != 1 {
		t.Errorf("got %d questions, want 1", n)
	}
}

func TestNew_NoUsableQuestions(t *testing.T) {
	cfg := Config{
		ExamID:    "exam1",
		TotalTime: 300,
		Store:     store.NewMemoryStore(),
		StoreKey:  "k",
		Log:       zerolog.Nop(),
	}
	_, err := New(cfg, []model.RawQuestion{rawQuestion(t, "broken", nil, 0)}, nil)
	if err != ErrNoQuestions {
		t.Errorf("err = %v, want ErrNoQuestions", err)
	}
}

func TestSelectAnswer_RangeAndOverwrite(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	if err := f.eng.SelectAnswer(5); err != ErrInvalidOption {
		t.Errorf("out-of-range err = %v, want ErrInvalidOption", err)
	}
	if err := f.eng.SelectAnswer(-1); err != ErrInvalidOption {
		t.Errorf("negative err = %v, want ErrInvalidOption", err)
	}

	if err := f.eng.SelectAnswer(0); err != nil {
		t.Fatalf("SelectAnswer(0): %v", err)
	}
	if err := f.eng.SelectAnswer(2); err != nil {
		t.Fatalf("SelectAnswer(2): %v", err)
	}
	if got := f.eng.Snapshot().Answers[0]; got != 2 {
		t.Errorf("answers[0] = %d, want 2 (overwrite allowed)", got)
	}
}

func TestScore_ScenarioB(t *testing.T) {
	// Answer questions 0 and 2 correctly, leave 1 unanswered -> score 2.
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	for i := 0; i < 3; i++ {
		if err := f.eng.GoTo(i); err != nil {
			t.Fatalf("GoTo(%d): %v", i, err)
		}
		if i == 1 {
			continue
		}
		q := f.eng.state.Questions[i]
		if err := f.eng.SelectAnswer(correctIndexFor(q)); err != nil {
			t.Fatalf("SelectAnswer on q%d: %v", i, err)
		}
	}

	if got := Score(f.eng.state); got != 2 {
		t.Errorf("Score = %d, want 2", got)
	}
	// Determinism: repeated calls agree.
	if again := Score(f.eng.state); again != 2 {
		t.Errorf("repeat Score = %d, want 2", again)
	}
	if got := f.eng.state.Answers[1]; got != model.Unanswered {
		t.Errorf("answers[1] = %d, want unanswered", got)
	}
}

func TestScore_DegradedQuestionNeverCorrect(t *testing.T) {
	state := &model.SessionState{
		Questions: []model.Question{
			{Text: "degraded", Options: []model.Option{{Text: "a"}, {Text: "b"}}},
		},
		Answers: []int{0},
	}
	if got := Score(state); got != 0 {
		t.Errorf("Score = %d, want 0 for degraded question", got)
	}
}

func TestGoTo_FreeNavigation(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	if err := f.eng.GoTo(2); err != nil {
		t.Fatalf("GoTo(2): %v", err)
	}
	if err := f.eng.GoTo(0); err != nil {
		t.Fatalf("GoTo(0) back: %v", err)
	}
	if err := f.eng.GoTo(3); err != ErrInvalidIndex {
		t.Errorf("GoTo(3) err = %v, want ErrInvalidIndex", err)
	}
	if err := f.eng.GoTo(-1); err != ErrInvalidIndex {
		t.Errorf("GoTo(-1) err = %v, want ErrInvalidIndex", err)
	}
}

func TestGoTo_ForwardOnlyInvariant(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationForwardOnly)

	// Jumping ahead of maxReached is rejected, not clamped.
	if err := f.eng.GoTo(2); err != ErrForwardOnly {
		t.Fatalf("GoTo(2) err = %v, want ErrForwardOnly", err)
	}
	snap := f.eng.Snapshot()
	if snap.Current != 0 {
		t.Fatalf("current moved to %d on rejected nav", snap.Current)
	}

	if err := f.eng.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := f.eng.GoTo(1); err != nil {
		t.Fatalf("GoTo(1) within maxReached: %v", err)
	}
	if err := f.eng.GoTo(0); err != nil {
		t.Fatalf("GoTo(0) within maxReached: %v", err)
	}

	if err := f.eng.Advance(); err != nil {
		t.Fatalf("Advance from 0: %v", err)
	}
	snap = f.eng.Snapshot()
	if snap.MaxReached < snap.Current {
		t.Errorf("invariant violated: maxReached %d < current %d", snap.MaxReached, snap.Current)
	}
}

func TestAdvance_AtLastQuestion(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)
	_ = f.eng.GoTo(2)
	if err := f.eng.Advance(); err != ErrAtLastQuestion {
		t.Errorf("err = %v, want ErrAtLastQuestion", err)
	}
}

func TestTick_MonotonicAndAutoSubmit_ScenarioC(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 3, model.NavigationFree)

	// Answer 2 of 3 questions, then let the clock run out.
	_ = f.eng.SelectAnswer(correctIndexFor(f.eng.state.Questions[0]))
	_ = f.eng.GoTo(2)
	_ = f.eng.SelectAnswer(correctIndexFor(f.eng.state.Questions[2]))

	prev := f.eng.TimeLeft()
	for i := 0; i < 3; i++ {
		left, finished := f.eng.Tick()
		if left > prev {
			t.Fatalf("timeLeft increased: %d -> %d", prev, left)
		}
		prev = left
		if finished && left != 0 {
			t.Fatalf("finished with timeLeft %d, want exactly 0", left)
		}
	}

	res := f.eng.Result()
	if res == nil {
		t.Fatal("no Result after time expiry")
	}
	if !res.TimeExpired {
		t.Error("TimeExpired = false, want true")
	}
	if res.TimeTaken != 3 {
		t.Errorf("TimeTaken = %d, want totalTime (3)", res.TimeTaken)
	}
	if res.Score != 2 {
		t.Errorf("Score = %d, want 2", res.Score)
	}
	if f.finishCount() != 1 {
		t.Errorf("finish hook ran %d times, want 1", f.finishCount())
	}

	// Late ticks after finish change nothing.
	left, finished := f.eng.Tick()
	if !finished || left != 0 {
		t.Errorf("post-finish Tick = (%d, %v), want (0, true)", left, finished)
	}
}

func TestFinish_Manual_ScenarioD(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	for i := 0; i < 4; i++ {
		f.eng.Tick()
	}
	res := f.eng.Finish(false)

	if res.TimeExpired {
		t.Error("TimeExpired = true for manual finish")
	}
	if res.TimeTaken != 4 {
		t.Errorf("TimeTaken = %d, want 4", res.TimeTaken)
	}
	if res.SubmittedAt.IsZero() {
		t.Error("SubmittedAt not set")
	}
}

func TestFinish_Idempotent(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)
	_ = f.eng.SelectAnswer(correctIndexFor(f.eng.state.Questions[0]))

	first := f.eng.Finish(false)
	second := f.eng.Finish(true) // late auto-submit path racing in

	if first != second {
		t.Error("second Finish produced a different Result")
	}
	if second.TimeExpired {
		t.Error("second Finish mutated TimeExpired")
	}
	if f.finishCount() != 1 {
		t.Errorf("finish hook ran %d times, want 1", f.finishCount())
	}

	// Navigation and answers are no-ops after finish.
	if err := f.eng.SelectAnswer(0); err != ErrFinished {
		t.Errorf("SelectAnswer err = %v, want ErrFinished", err)
	}
	if err := f.eng.GoTo(1); err != ErrFinished {
		t.Errorf("GoTo err = %v, want ErrFinished", err)
	}
	if err := f.eng.Advance(); err != ErrFinished {
		t.Errorf("Advance err = %v, want ErrFinished", err)
	}
}

func TestFinish_ClearsStoreSlot(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)
	f.eng.Finish(false)

	if _, err := f.mem.Load(context.Background(), f.key); err != store.ErrNotFound {
		t.Errorf("Load after finish err = %v, want ErrNotFound", err)
	}
}

func TestRestore_ScenarioE_ReloadReproducesState(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	_ = f.eng.SelectAnswer(1)
	_ = f.eng.GoTo(2)
	_ = f.eng.SelectAnswer(0)
	f.eng.Tick()
	f.eng.Tick()

	before := f.eng.Snapshot()

	// Simulate the reload: load the persisted slot and restore.
	persisted, err := f.mem.Load(context.Background(), f.key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored := Restore(Config{
		Policy:   model.NavigationFree,
		Store:    f.mem,
		StoreKey: f.key,
		Log:      zerolog.Nop(),
	}, persisted)
	after := restored.Snapshot()

	if after.ID != before.ID {
		t.Errorf("session ID changed across reload")
	}
	for i := range before.Questions {
		if after.Questions[i].Text != before.Questions[i].Text {
			t.Fatalf("question order changed at %d: %q vs %q", i, after.Questions[i].Text, before.Questions[i].Text)
		}
		for j := range before.Questions[i].Options {
			if after.Questions[i].Options[j] != before.Questions[i].Options[j] {
				t.Fatalf("option order changed for question %d", i)
			}
		}
	}
	if fmt.Sprint(after.Answers) != fmt.Sprint(before.Answers) {
		t.Errorf("answers changed: %v vs %v", after.Answers, before.Answers)
	}
	if after.Current != before.Current {
		t.Errorf("current changed: %d vs %d", after.Current, before.Current)
	}
	if after.Status != model.SessionStatusRunning {
		t.Errorf("status = %s, want RUNNING", after.Status)
	}
}

func TestRestore_RecomputesTimeFromWallClock(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	persisted, err := f.mem.Load(context.Background(), f.key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// A manipulated counter must be ignored in favor of elapsed wall time.
	persisted.TimeLeft = 300
	persisted.StartedAt = time.Now().Add(-100 * time.Second)

	restored := Restore(Config{
		Store:    f.mem,
		StoreKey: f.key,
		Log:      zerolog.Nop(),
	}, persisted)

	left := restored.TimeLeft()
	if left > 201 || left < 199 {
		t.Errorf("timeLeft = %d, want ~200 recomputed from startedAt", left)
	}
}

func TestRestore_ExpiredWhileAway(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	persisted, err := f.mem.Load(context.Background(), f.key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	persisted.StartedAt = time.Now().Add(-400 * time.Second)

	var finished []model.Result
	restored := Restore(Config{
		Store:    f.mem,
		StoreKey: f.key,
		Log:      zerolog.Nop(),
		OnFinish: func(r model.Result) { finished = append(finished, r) },
	}, persisted)

	res := restored.Result()
	if res == nil {
		t.Fatal("no Result for session that expired while away")
	}
	if !res.TimeExpired {
		t.Error("TimeExpired = false, want true")
	}
	if res.TimeTaken != 300 {
		t.Errorf("TimeTaken = %d, want totalTime", res.TimeTaken)
	}
	if len(finished) != 1 {
		t.Errorf("finish hook ran %d times, want 1", len(finished))
	}
}

func TestStartTimer_StopsOnFinish(t *testing.T) {
	f := newFixture(t, threeQuestions(t), 300, model.NavigationFree)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.eng.StartTimer(ctx)
		close(done)
	}()

	f.eng.Finish(false)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer goroutine did not stop after finish")
	}
}
