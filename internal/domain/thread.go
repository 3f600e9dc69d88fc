package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Verdict is the sensitivity verdict attached to a classified message.
type Verdict struct {
	Sensitivity       Sensitivity `json:"sensitivity"`
	Categories        []Category  `json:"categories,omitempty"`
	ContainsRegulated bool        `json:"containsRegulated"`
	ContainsPersonal  bool        `json:"containsPersonal"`
	RedactedContent   *string     `json:"redactedContent,omitempty"`
}

// Message is a single entry in a Thread. Role never changes after creation;
// Content may only change while IsStreaming is true.
type Message struct {
	ID          string         `json:"id"`
	Role        MessageRole    `json:"role"`
	Content     string         `json:"content"`
	Timestamp   time.Time      `json:"timestamp"`
	IsStreaming bool           `json:"isStreaming,omitempty"`
	Verdict     *Verdict       `json:"classification,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Thread is an ordered conversation.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultThreadTitle is used for threads created without a title.
const DefaultThreadTitle = "New conversation"

const maxTitleRunes = 50

// TitleFromContent derives a thread title from the first message.
func TitleFromContent(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	if s == "" {
		return DefaultThreadTitle
	}
	if utf8.RuneCountInString(s) <= maxTitleRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "..."
}

// Clone returns a deep copy of the thread so callers cannot mutate store state.
func (t *Thread) Clone() Thread {
	out := *t
	out.Messages = make([]Message, len(t.Messages))
	for i, m := range t.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Verdict != nil {
		v := *m.Verdict
		v.Categories = append([]Category(nil), m.Verdict.Categories...)
		if m.Verdict.RedactedContent != nil {
			rc := *m.Verdict.RedactedContent
			v.RedactedContent = &rc
		}
		out.Verdict = &v
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// ThreadPage is one page of persisted threads.
type ThreadPage struct {
	Threads []Thread `json:"threads"`
	Total   int      `json:"total"`
}
