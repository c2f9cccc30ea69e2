package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/middleware"
	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/service"
	"github.com/quizrail/quizrail-backend/internal/session"
	ws "github.com/quizrail/quizrail-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsWriter serializes writes to a connection. The tick pusher and the
// action loop both write, and gorilla allows only one writer at a time.
// Every write failure is logged here so a dead socket never swallows an
// acknowledgement silently.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  zerolog.Logger
}

func (w *wsWriter) send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ws.WriteTyped(w.conn, v); err != nil {
		w.log.Warn().Err(err).Msg("WebSocket write failed")
		return err
	}
	return nil
}

func (w *wsWriter) sendError(msg string) {
	_ = w.send(ws.ErrorResponse{Event: ws.EventError, Error: msg})
}

// WSHandler streams session events: per-second countdown ticks and
// answer/navigation acknowledgements over one socket.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/stream?token=...
// Upgrades to WebSocket for the token's session. The server pushes one
// tick per second and a single finished event when the session ends.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	eng, err := h.sessions.Get(claims.SessionID)
	if err != nil {
		ws.WriteError(conn, "no live session for this token")
		return
	}

	wsLog := h.log.With().
		Str("session_id", eng.ID().String()).
		Str("exam_id", claims.ExamID).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	writer := &wsWriter{conn: conn, log: wsLog}

	// The finished event is pushed exactly once, whether the session ends
	// by timer expiry, an explicit finish action, or an HTTP finish call.
	var finishedOnce sync.Once
	sendFinished := func() {
		finishedOnce.Do(func() {
			res := eng.Result()
			if res == nil {
				return
			}
			writer.send(ws.FinishedEvent{
				Event:       ws.EventFinished,
				Score:       res.Score,
				Total:       res.Total,
				TimeTaken:   res.TimeTaken,
				TimeExpired: res.TimeExpired,
			})
		})
	}

	done := make(chan struct{})
	defer close(done)
	go h.pushTicks(eng, writer, sendFinished, done)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(eng, writer, &msg)
		case ws.ActionGoTo:
			h.handleGoTo(eng, writer, &msg)
		case ws.ActionAdvance:
			if err := eng.Advance(); err != nil {
				writer.sendError(err.Error())
				continue
			}
			writer.send(ws.SavedEvent{Event: ws.EventSaved, Current: eng.Snapshot().Current})
		case ws.ActionFinish:
			eng.Finish(false)
			sendFinished()
		case ws.ActionPing:
			writer.send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			writer.sendError("unknown action: " + string(msg.Action))
		}
	}
}

// pushTicks reports the engine's remaining time once per second until the
// session finishes or the socket goes away. The engine owns the countdown;
// this loop only mirrors it.
func (h *WSHandler) pushTicks(eng *session.Engine, writer *wsWriter, sendFinished func(), done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if eng.Status() == model.SessionStatusFinished {
				sendFinished()
				return
			}
			if err := writer.send(ws.TickEvent{Event: ws.EventTick, TimeLeft: eng.TimeLeft()}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleAnswer(eng *session.Engine, writer *wsWriter, msg *ws.RequestPayload) {
	if msg.OptionIndex == nil {
		writer.sendError("option_index is required")
		return
	}
	if err := eng.SelectAnswer(*msg.OptionIndex); err != nil {
		writer.sendError(err.Error())
		return
	}
	writer.send(ws.SavedEvent{Event: ws.EventSaved, Current: eng.Snapshot().Current})
}

func (h *WSHandler) handleGoTo(eng *session.Engine, writer *wsWriter, msg *ws.RequestPayload) {
	if msg.Index == nil {
		writer.sendError("index is required")
		return
	}
	if err := eng.GoTo(*msg.Index); err != nil {
		writer.sendError(err.Error())
		return
	}
	writer.send(ws.SavedEvent{Event: ws.EventSaved, Current: eng.Snapshot().Current})
}
