package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation as stored in history and sent to the
// chat-completion API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
