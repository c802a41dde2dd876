package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionProctor  Action = "proctor"
	ActionPresence Action = "presence"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single draft answer.
type AutosaveRequest struct {
	Action Action `json:"action"`
	ItemID string `json:"item_id"`
	Value  string `json:"value"`
}

// ProctorRequest is sent by the client to report one integrity signal.
type ProctorRequest struct {
	Action Action `json:"action"`
	Signal string `json:"signal"`
	Detail string `json:"detail,omitempty"`
}

// PresenceRequest is the periodic liveness ping.
type PresenceRequest struct {
	Action Action `json:"action"`
	Status string `json:"status"`
}

// SubmitRequest is sent by the client to finalize the attempt.
type SubmitRequest struct {
	Action  Action            `json:"action"`
	Answers map[string]string `json:"answers"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventViolation Event = "violation"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	ItemID string `json:"item_id"`
}

// ViolationResponse mirrors the monitor state back so the client can render
// the warning banner with the authoritative counter.
type ViolationResponse struct {
	Event         Event  `json:"event"`
	Signal        string `json:"signal"`
	TabViolations int    `json:"tab_violations"`
	ForceSubmit   bool   `json:"force_submit"`
	Reason        string `json:"reason,omitempty"`
}

type SubmittedResponse struct {
	Event        Event  `json:"event"`
	Reason       string `json:"reason"`
	Disqualified bool   `json:"disqualified"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
