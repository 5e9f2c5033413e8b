package domain

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// OutputSchema constrains a structured completion. Schema is a JSON schema
// document expressed as nested maps.
type OutputSchema struct {
	Name   string
	Schema map[string]any
}
