package model

// ChatRequest is an incoming chat turn.
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	APIKey         string `json:"api_key" binding:"required"`
	Model          string `json:"model,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}
