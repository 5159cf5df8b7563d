package model

// Terminal turn statuses carried by the "done" stream event.
const (
	StatusCompleted      = "completed"
	StatusPartial        = "partial"
	StatusAuthError      = "auth_error"
	StatusRateLimited    = "rate_limited"
	StatusModelError     = "model_error"
	StatusTransportError = "transport_error"
	StatusInternalError  = "internal_error"
)

// ErrorResponse is the shared synchronous error body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// InitiateResponse is returned by POST /api/chat/initiate.
type InitiateResponse struct {
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversation_id"`
}

// ConversationSummary is one row of the conversation listing.
type ConversationSummary struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

// FragmentEvent is the payload of a "message" stream event, one per
// upstream fragment, in arrival order.
type FragmentEvent struct {
	Text string `json:"text"`
}

// TerminalEvent is the payload of the "done" stream event. Exactly one
// is emitted per turn, whatever the outcome, so the client can always
// tell "more is coming" from "turn is over".
type TerminalEvent struct {
	Status             string `json:"status"`
	ConversationID     string `json:"conversation_id"`
	AssistantMessageID string `json:"assistant_message_id,omitempty"`
	Detail             string `json:"detail,omitempty"`
}
