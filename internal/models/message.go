package models

// Message is one entry of a chat-completions message list.
type Message struct {
	Role    string `json:"role"` // "user", "system" or "assistant"
	Content string `json:"content"`
}

// Event types pushed to websocket clients while a question is processed.
const (
	EventClassified = "classified"
	EventAnswer     = "answer"
	EventAwaitVote  = "awaiting_vote"
	EventPersisted  = "persisted"
	EventWarning    = "warning"
	EventError      = "error"
)

// Event is a server-to-client websocket frame.
type Event struct {
	Type           string   `json:"type"`
	SessionID      string   `json:"sessionId,omitempty"`
	CognitiveLevel string   `json:"cognitiveLevel,omitempty"`
	Model          string   `json:"model,omitempty"`
	Kind           string   `json:"kind,omitempty"`
	Text           string   `json:"text,omitempty"`
	Choices        []string `json:"choices,omitempty"`
	Saved          *bool    `json:"saved,omitempty"`
	Turn           *Turn    `json:"turn,omitempty"`
}

// Command is a client-to-server websocket frame. Models is nil when the
// client leaves the choice to the default model.
type Command struct {
	Type     string   `json:"type"` // "ask" or "vote"
	Question string   `json:"question,omitempty"`
	Models   []string `json:"models"`
	Model    string   `json:"model,omitempty"`
}
