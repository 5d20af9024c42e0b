package model

type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatReq carries the conversation so far; a system turn is optional and
// synthesized when absent.
// swagger:model ChatReq
type ChatReq struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Model    string        `json:"model"`
}

// ChatEvent is one SSE frame streamed back to the client.
type ChatEvent struct {
	Type    string `json:"type"` // delta | done | error
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}
