package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizrail/quizrail-backend/internal/content"
	"github.com/quizrail/quizrail-backend/internal/middleware"
	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/response"
	"github.com/quizrail/quizrail-backend/internal/service"
	"github.com/quizrail/quizrail-backend/internal/session"
	"github.com/quizrail/quizrail-backend/internal/validator"
)

// SessionHandler handles the exam session lifecycle over HTTP: start,
// snapshot, answering, navigation and finishing.
type SessionHandler struct {
	sessions *service.SessionService
	tokens   *service.TokenService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, tokens *service.TokenService) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		tokens:   tokens,
	}
}

// Start godoc
// POST /api/v1/sessions
// Starts a new session, or resumes the candidate's persisted one for the
// same exam. The returned token must accompany every subsequent call.
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	eng, err := h.sessions.Start(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrBadExamID):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		case errors.Is(err, content.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		case errors.Is(err, session.ErrNoQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrExamUnreadable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	snap := eng.Snapshot()

	token, err := h.tokens.GenerateSessionToken(eng.ID(), snap.ExamID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, sessionPayload(snap, eng, gin.H{
		"token": token,
	}))
}

// GetSession godoc
// GET /api/v1/sessions/me
// Returns the current snapshot of the token's session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	eng, ok := h.engineFromToken(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, sessionPayload(eng.Snapshot(), eng, nil))
}

// Answer godoc
// POST /api/v1/sessions/me/answers
// Records (or overwrites) the answer for the current question.
func (h *SessionHandler) Answer(c *gin.Context) {
	eng, ok := h.engineFromToken(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := eng.SelectAnswer(*req.OptionIndex); err != nil {
		failEngineError(c, err)
		return
	}

	snap := eng.Snapshot()
	response.Success(c, http.StatusOK, gin.H{
		"current": snap.Current,
		"answers": snap.Answers,
	})
}

// GoTo godoc
// POST /api/v1/sessions/me/goto
// Jumps to a question index, subject to the navigation policy.
func (h *SessionHandler) GoTo(c *gin.Context) {
	eng, ok := h.engineFromToken(c)
	if !ok {
		return
	}

	var req model.GoToRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := eng.GoTo(*req.Index); err != nil {
		failEngineError(c, err)
		return
	}

	snap := eng.Snapshot()
	response.Success(c, http.StatusOK, gin.H{
		"current":     snap.Current,
		"max_reached": snap.MaxReached,
	})
}

// Advance godoc
// POST /api/v1/sessions/me/advance
// Moves to the next question.
func (h *SessionHandler) Advance(c *gin.Context) {
	eng, ok := h.engineFromToken(c)
	if !ok {
		return
	}

	if err := eng.Advance(); err != nil {
		failEngineError(c, err)
		return
	}

	snap := eng.Snapshot()
	response.Success(c, http.StatusOK, gin.H{
		"current":     snap.Current,
		"max_reached": snap.MaxReached,
	})
}

// Finish godoc
// POST /api/v1/sessions/me/finish
// Submits the session. Safe to call more than once; the first result wins.
func (h *SessionHandler) Finish(c *gin.Context) {
	eng, ok := h.engineFromToken(c)
	if !ok {
		return
	}

	result := eng.Finish(false)
	response.Success(c, http.StatusOK, gin.H{
		"result": result,
	})
}

// GetResult godoc
// GET /api/v1/sessions/me/result
// Returns the final result of a finished session.
func (h *SessionHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.sessions.Result(claims.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, service.ErrNotFinished):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotFinished)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result": result,
	})
}

// engineFromToken resolves the live engine behind the request's token.
// It writes the failure response itself, so callers just bail on !ok.
func (h *SessionHandler) engineFromToken(c *gin.Context) (*session.Engine, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	eng, err := h.sessions.Get(claims.SessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}

	return eng, true
}

// sessionPayload builds the standard session body, attaching the result
// when the session has already finished (e.g. resumed after expiry).
func sessionPayload(snap model.Snapshot, eng *session.Engine, extra gin.H) gin.H {
	body := gin.H{
		"session": snap,
	}
	if snap.Status == model.SessionStatusFinished {
		body["result"] = eng.Result()
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

// failEngineError maps engine errors onto API error codes.
func failEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrFinished):
		response.Fail(c, http.StatusConflict, response.ErrSessionFinished)
	case errors.Is(err, session.ErrInvalidOption):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidOption)
	case errors.Is(err, session.ErrInvalidIndex), errors.Is(err, session.ErrAtLastQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidQuestion)
	case errors.Is(err, session.ErrForwardOnly):
		response.Fail(c, http.StatusForbidden, response.ErrForwardOnly)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
