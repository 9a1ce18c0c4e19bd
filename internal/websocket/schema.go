package websocket

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventTick carries the remaining seconds, sent once per second.
	EventTick Event = "tick"
	// EventSettled closes the stream: the session left the Active state.
	EventSettled Event = "settled"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// TickResponse is the per-second countdown update.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SettledResponse tells the client the session is done and in which state
// it ended up.
type SettledResponse struct {
	Event Event  `json:"event"`
	State string `json:"state"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}
