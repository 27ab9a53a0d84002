package model

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn. Timestamp is Unix milliseconds, matching
// what JavaScript clients produce with Date.now().
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// CanvasEntry is one item of the image-generation history.
type CanvasEntry struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	ImageURL  string `json:"imageUrl"`
	Timestamp int64  `json:"timestamp"`
}
