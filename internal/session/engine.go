// Package session implements the exam session engine: one candidate, one
// exam, exactly one Result. The engine owns question shuffling, navigation,
// answer recording, the countdown, scoring and finish orchestration. All
// mutation goes through a single mutex, so each event runs to completion
// before the next is observed.
package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/normalize"
	"github.com/quizrail/quizrail-backend/internal/store"
)

var (
	// ErrNoQuestions means the question set had no usable questions.
	ErrNoQuestions = errors.New("question set has no usable questions")
	// ErrFinished means the session already produced its Result.
	ErrFinished = errors.New("session is finished")
	// ErrInvalidOption means the option index is out of range for the
	// current question.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrInvalidIndex means the question index is out of range.
	ErrInvalidIndex = errors.New("question index out of range")
	// ErrForwardOnly means the navigation target lies beyond maxReached
	// under the forward-only policy.
	ErrForwardOnly = errors.New("cannot revisit questions under forward-only navigation")
	// ErrAtLastQuestion means advance was called on the last question.
	ErrAtLastQuestion = errors.New("already at the last question")
)

// Config carries everything an engine needs besides the questions.
type Config struct {
	ExamID    string
	Candidate model.Candidate
	TotalTime int // seconds
	Policy    model.NavigationPolicy
	Store     store.SessionStore
	StoreKey  string
	Log       zerolog.Logger
	// OnFinish receives the Result exactly once, after it is built and the
	// store slot is cleared. Dispatch to the result sink happens here.
	OnFinish func(model.Result)
}

// Engine drives one session. Timer ticks, HTTP handlers and the WebSocket
// stream all funnel through the same mutex.
type Engine struct {
	mu    sync.Mutex
	state *model.SessionState

	policy   model.NavigationPolicy
	store    store.SessionStore
	storeKey string
	log      zerolog.Logger
	onFinish func(model.Result)

	result   *model.Result
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New normalizes and shuffles the raw questions and starts a fresh session.
// Option-less questions are dropped with a warning; if nothing usable
// remains the session is not created. The initial state is persisted before
// New returns so an immediate reload can already resume.
func New(cfg Config, raws []model.RawQuestion, rng *rand.Rand) (*Engine, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var questions []model.Question
	for _, q := range normalize.Questions(raws) {
		if len(q.Options) == 0 {
			cfg.Log.Warn().Str("exam_id", cfg.ExamID).Str("question", q.Text).
				Msg("Dropping question without options")
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	shuffleQuestions(questions, rng)
	for i := range questions {
		shuffleOptions(questions[i].Options, rng)
	}

	answers := make([]int, len(questions))
	for i := range answers {
		answers[i] = model.Unanswered
	}

	e := newEngine(cfg, &model.SessionState{
		ID:         uuid.New(),
		ExamID:     cfg.ExamID,
		Candidate:  cfg.Candidate,
		Questions:  questions,
		Answers:    answers,
		Current:    0,
		MaxReached: 0,
		TotalTime:  cfg.TotalTime,
		TimeLeft:   cfg.TotalTime,
		StartedAt:  time.Now(),
		Status:     model.SessionStatusRunning,
	})

	e.mu.Lock()
	e.persistLocked()
	e.mu.Unlock()

	return e, nil
}

// Restore rebuilds an engine from persisted state. The shuffled order and
// recorded answers survive verbatim; only the remaining time is recomputed
// from the trusted server clock, never from the persisted counter. If the
// time already ran out while the session was away, the engine finishes
// immediately with timeExpired set.
func Restore(cfg Config, state *model.SessionState) *Engine {
	e := newEngine(cfg, state)

	elapsed := int(e.now().Sub(state.StartedAt).Seconds())
	left := state.TotalTime - elapsed
	if left < 0 {
		left = 0
	}
	if left > state.TotalTime {
		left = state.TotalTime
	}

	e.mu.Lock()
	state.TimeLeft = left
	var fin *finishOutcome
	if left == 0 {
		fin = e.finishLocked(true)
	} else {
		e.persistLocked()
	}
	e.mu.Unlock()

	e.deliver(fin)
	return e
}

func newEngine(cfg Config, state *model.SessionState) *Engine {
	return &Engine{
		state:    state,
		policy:   cfg.Policy,
		store:    cfg.Store,
		storeKey: cfg.StoreKey,
		log:      cfg.Log.With().Str("session_id", state.ID.String()).Str("exam_id", state.ExamID).Logger(),
		onFinish: cfg.OnFinish,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

// ID returns the session identifier.
func (e *Engine) ID() uuid.UUID {
	return e.state.ID
}

// Snapshot returns the candidate-facing view of the current state.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot()
}

// Status returns the lifecycle state.
func (e *Engine) Status() model.SessionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Status
}

// TimeLeft returns the remaining seconds.
func (e *Engine) TimeLeft() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.TimeLeft
}

// Result returns the Result once the session is finished, nil before.
func (e *Engine) Result() *model.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// SelectAnswer records the chosen option for the current question,
// overwriting any prior choice. Changing one's mind is always allowed
// before finish.
func (e *Engine) SelectAnswer(optionIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status == model.SessionStatusFinished {
		return ErrFinished
	}
	if optionIndex < 0 || optionIndex >= len(e.state.Questions[e.state.Current].Options) {
		return ErrInvalidOption
	}

	e.state.Answers[e.state.Current] = optionIndex
	e.persistLocked()
	return nil
}

// GoTo navigates to question i. Under forward-only navigation a target
// beyond maxReached is rejected, never clamped.
func (e *Engine) GoTo(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status == model.SessionStatusFinished {
		return ErrFinished
	}
	if i < 0 || i >= len(e.state.Questions) {
		return ErrInvalidIndex
	}
	if e.policy == model.NavigationForwardOnly && i > e.state.MaxReached {
		return ErrForwardOnly
	}

	e.state.Current = i
	if i > e.state.MaxReached {
		e.state.MaxReached = i
	}
	e.persistLocked()
	return nil
}

// Advance moves to the next question, raising maxReached. Rejected at the
// last question.
func (e *Engine) Advance() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status == model.SessionStatusFinished {
		return ErrFinished
	}
	if e.state.Current >= len(e.state.Questions)-1 {
		return ErrAtLastQuestion
	}

	e.state.Current++
	if e.state.Current > e.state.MaxReached {
		e.state.MaxReached = e.state.Current
	}
	e.persistLocked()
	return nil
}

// Tick consumes one second of the countdown and persists the state. When
// the counter reaches zero the session auto-submits with timeExpired set.
// Returns the remaining seconds and whether the session is now finished.
func (e *Engine) Tick() (int, bool) {
	e.mu.Lock()

	if e.state.Status == model.SessionStatusFinished {
		left := e.state.TimeLeft
		e.mu.Unlock()
		return left, true
	}

	e.state.TimeLeft--
	if e.state.TimeLeft > 0 {
		e.persistLocked()
		left := e.state.TimeLeft
		e.mu.Unlock()
		return left, false
	}

	e.state.TimeLeft = 0
	fin := e.finishLocked(true)
	e.mu.Unlock()

	e.deliver(fin)
	return 0, true
}

// Finish ends the session manually. Idempotent: a repeat call returns the
// already-produced Result without re-invoking the finish hook.
func (e *Engine) Finish(timeExpired bool) *model.Result {
	e.mu.Lock()
	fin := e.finishLocked(timeExpired)
	res := e.result
	e.mu.Unlock()

	e.deliver(fin)
	return res
}

// StartTimer runs the one-second countdown until the session finishes or
// ctx is cancelled. Call in a goroutine; exactly once per engine.
func (e *Engine) StartTimer(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			if _, finished := e.Tick(); finished {
				return
			}
		}
	}
}

// finishOutcome carries a freshly built Result out of the locked section so
// the finish hook runs without holding the engine mutex.
type finishOutcome struct {
	result model.Result
}

// finishLocked performs the one-shot finish sequence: stop the timer, read
// timeLeft and compute the score before anything else can touch it, build
// the Result, clear the persistence slot. Returns nil if the session was
// already finished.
func (e *Engine) finishLocked(timeExpired bool) *finishOutcome {
	if e.state.Status == model.SessionStatusFinished {
		return nil
	}

	e.stopOnce.Do(func() { close(e.stop) })

	res := model.Result{
		SessionID:   e.state.ID,
		Candidate:   e.state.Candidate,
		ExamID:      e.state.ExamID,
		Score:       Score(e.state),
		Total:       len(e.state.Questions),
		TimeTaken:   e.state.TotalTime - e.state.TimeLeft,
		SubmittedAt: e.now(),
		TimeExpired: timeExpired,
	}

	e.state.Status = model.SessionStatusFinished
	e.result = &res

	if err := e.store.Clear(context.Background(), e.storeKey); err != nil {
		e.log.Error().Err(err).Msg("Clear session slot failed")
	}

	e.log.Info().
		Int("score", res.Score).
		Int("total", res.Total).
		Int("time_taken", res.TimeTaken).
		Bool("time_expired", res.TimeExpired).
		Msg("Session finished")

	return &finishOutcome{result: res}
}

func (e *Engine) deliver(fin *finishOutcome) {
	if fin != nil && e.onFinish != nil {
		e.onFinish(fin.result)
	}
}

// persistLocked overwrites the session slot with the current state.
// Persistence is best-effort: a failed save costs resumability, not the
// running session.
func (e *Engine) persistLocked() {
	if err := e.store.Save(context.Background(), e.storeKey, e.state); err != nil {
		e.log.Error().Err(err).Msg("Persist session state failed")
	}
}
