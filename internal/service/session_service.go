package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/config"
	"github.com/quizrail/quizrail-backend/internal/content"
	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/session"
	"github.com/quizrail/quizrail-backend/internal/sink"
	"github.com/quizrail/quizrail-backend/internal/store"
)

var (
	// ErrSessionNotFound means no live session matches the token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotFinished means the Result was requested before finish.
	ErrNotFinished = errors.New("session is not finished yet")
)

// finishedRetention is how long a finished engine stays addressable so the
// candidate can still fetch their result after the redirect.
const finishedRetention = time.Hour

// ResultArchiver hands a finished Result to the local archive pipeline.
type ResultArchiver interface {
	Archive(ctx context.Context, res model.Result) error
}

// SessionService orchestrates session engines: content loading, resume,
// lifecycle, and delivery of finished Results to the sink and the archive.
type SessionService struct {
	provider content.Provider
	store    store.SessionStore
	sink     sink.ResultSink
	archiver ResultArchiver // optional
	policy   model.NavigationPolicy
	log      zerolog.Logger

	mu        sync.Mutex
	engines   map[uuid.UUID]*session.Engine
	bySlot    map[string]uuid.UUID
	slotLocks map[string]*sync.Mutex
}

// NewSessionService creates a new SessionService. archiver may be nil when
// no archive database is configured.
func NewSessionService(
	provider content.Provider,
	st store.SessionStore,
	resultSink sink.ResultSink,
	archiver ResultArchiver,
	policy model.NavigationPolicy,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		provider:  provider,
		store:     st,
		sink:      resultSink,
		archiver:  archiver,
		policy:    policy,
		log:       log.With().Str("component", "session_service").Logger(),
		engines:   make(map[uuid.UUID]*session.Engine),
		bySlot:    make(map[string]uuid.UUID),
		slotLocks: make(map[string]*sync.Mutex),
	}
}

// Start begins a session for the candidate, or resumes one. Resolution
// order for the slot: a live in-memory engine wins, then verbatim restore
// of persisted state, then a fresh session. Corrupted persisted state is
// discarded, never fatal.
func (s *SessionService) Start(ctx context.Context, req model.StartSessionRequest) (*session.Engine, error) {
	slotKey := config.CacheKey.SessionSlotKey(req.ExamID, candidateKey(req.Name))

	// One start at a time per slot. Without this, two concurrent starts for
	// the same candidate/exam could each build an engine and both tick and
	// persist the same slot.
	lock := s.slotLock(slotKey)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	if id, ok := s.bySlot[slotKey]; ok {
		if eng, ok := s.engines[id]; ok && eng.Status() == model.SessionStatusRunning {
			s.mu.Unlock()
			return eng, nil
		}
	}
	s.mu.Unlock()

	if persisted, err := s.store.Load(ctx, slotKey); err == nil {
		eng := session.Restore(s.engineConfig(req.ExamID, model.Candidate{}, 0, slotKey), persisted)
		s.register(slotKey, eng)
		if eng.Status() == model.SessionStatusRunning {
			go eng.StartTimer(context.Background())
		}
		s.log.Info().Str("exam_id", req.ExamID).Str("session_id", eng.ID().String()).Msg("Session resumed")
		return eng, nil
	} else if errors.Is(err, store.ErrCorrupt) {
		s.log.Warn().Str("slot", slotKey).Msg("Discarding corrupt persisted session state")
		_ = s.store.Clear(ctx, slotKey)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load persisted session: %w", err)
	}

	doc, err := s.provider.Get(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}

	candidate := model.Candidate{
		Name:        strings.TrimSpace(req.Name),
		Affiliation: strings.TrimSpace(req.Affiliation),
		Contact:     strings.TrimSpace(req.Contact),
	}

	eng, err := session.New(
		s.engineConfig(req.ExamID, candidate, doc.Duration(), slotKey),
		doc.Questions,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	if err != nil {
		return nil, err
	}

	s.register(slotKey, eng)
	go eng.StartTimer(context.Background())

	s.log.Info().
		Str("exam_id", req.ExamID).
		Str("session_id", eng.ID().String()).
		Int("questions", len(eng.Snapshot().Questions)).
		Int("total_time", doc.Duration()).
		Msg("Session started")
	return eng, nil
}

// Get returns the live engine for a session ID.
func (s *SessionService) Get(sessionID uuid.UUID) (*session.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, ok := s.engines[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return eng, nil
}

// Result returns the Result for a finished session.
func (s *SessionService) Result(sessionID uuid.UUID) (*model.Result, error) {
	eng, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	res := eng.Result()
	if res == nil {
		return nil, ErrNotFinished
	}
	return res, nil
}

func (s *SessionService) engineConfig(examID string, candidate model.Candidate, totalTime int, slotKey string) session.Config {
	return session.Config{
		ExamID:    examID,
		Candidate: candidate,
		TotalTime: totalTime,
		Policy:    s.policy,
		Store:     s.store,
		StoreKey:  slotKey,
		Log:       s.log,
		OnFinish:  s.finished(slotKey),
	}
}

// finished builds the one-shot finish hook: fire-and-forget delivery to the
// external sink, best-effort enqueue to the local archive, and deferred
// removal of the engine from the registry.
func (s *SessionService) finished(slotKey string) func(model.Result) {
	return func(res model.Result) {
		sink.Dispatch(s.sink, s.log, res)

		if s.archiver != nil {
			if err := s.archiver.Archive(context.Background(), res); err != nil {
				s.log.Error().Err(err).
					Str("session_id", res.SessionID.String()).
					Msg("Archive enqueue failed")
			}
		}

		time.AfterFunc(finishedRetention, func() {
			s.mu.Lock()
			delete(s.engines, res.SessionID)
			if s.bySlot[slotKey] == res.SessionID {
				delete(s.bySlot, slotKey)
			}
			s.mu.Unlock()
		})
	}
}

// slotLock returns the mutex serializing starts on one slot. Locks are
// never removed; there is one per candidate/exam pair ever seen.
func (s *SessionService) slotLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.slotLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.slotLocks[key] = lock
	}
	return lock
}

func (s *SessionService) register(slotKey string, eng *session.Engine) {
	s.mu.Lock()
	s.engines[eng.ID()] = eng
	s.bySlot[slotKey] = eng.ID()
	s.mu.Unlock()
}

// candidateKey normalizes a candidate name into a slot key component: the
// same person restarting the same exam lands on the same slot.
func candidateKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
