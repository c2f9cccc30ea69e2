package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer  Action = "answer"
	ActionGoTo    Action = "goto"
	ActionAdvance Action = "advance"
	ActionFinish  Action = "finish"
	ActionPing    Action = "ping"
)

// RequestPayload is the single client message shape; unused fields are
// ignored per action.
type RequestPayload struct {
	Action      Action `json:"action"`
	OptionIndex *int   `json:"option_index,omitempty"`
	Index       *int   `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventSaved    Event = "saved"
	EventTick     Event = "tick"
	EventFinished Event = "finished"
	EventPong     Event = "pong"
)

// TickEvent is pushed once per second while the session runs. The server
// clock is authoritative; clients render, they don't count.
type TickEvent struct {
	Event    Event `json:"event"`
	TimeLeft int   `json:"time_left"`
}

type SavedEvent struct {
	Event   Event `json:"event"`
	Current int   `json:"current"`
}

type FinishedEvent struct {
	Event       Event `json:"event"`
	Score       int   `json:"score"`
	Total       int   `json:"total"`
	TimeTaken   int   `json:"time_taken"`
	TimeExpired bool  `json:"time_expired"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
