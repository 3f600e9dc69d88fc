package chat

import "github.com/heartmarshall/labassist-backend/internal/domain"

// NewMessage is a message to append. ID and timestamp are assigned by the
// store.
type NewMessage struct {
	// ThreadID targets a specific thread. When empty the store resolves the
	// target from its active and pending threads.
	ThreadID    string
	Role        domain.MessageRole
	Content     string
	IsStreaming bool
	Metadata    map[string]any
}

// MessageRef identifies an appended message.
type MessageRef struct {
	MessageID     string `json:"messageId"`
	ThreadID      string `json:"threadId"`
	CreatedThread bool   `json:"createdThread"`
}
