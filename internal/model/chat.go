package model

import (
	"time"
)

// Role represents the role of a transcript entry author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FollowUp is a suggested next prompt. EntryID, when non-nil, binds the
// prompt to a specific schedule entry.
type FollowUp struct {
	Text    string `json:"text"`
	EntryID *int   `json:"entryId,omitempty"`
}

// PendingConfirmation carries the cancellation-confirmation state attached
// to an assistant entry while the admin picks a session to cancel.
type PendingConfirmation struct {
	Prompt  string          `json:"prompt"`
	Entries []ScheduleEntry `json:"entries"`
}

// ChatEntry represents one turn in the admin transcript.
type ChatEntry struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Pending marks the in-flight assistant placeholder. At most one entry
	// in a transcript is pending at a time.
	Pending bool `json:"pending,omitempty"`

	FollowUps           []FollowUp           `json:"followUps,omitempty"`
	PendingConfirmation *PendingConfirmation `json:"pendingConfirmation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ToolInvocation is a single named operation requested by the model. It is
// produced and consumed within one orchestration cycle, never persisted.
type ToolInvocation struct {
	Name      string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// SendChatRequest is the request to submit a chat message.
type SendChatRequest struct {
	Content string `json:"content"`
}

// SelectCancellationRequest identifies the entry the admin picked from a
// pending cancellation prompt.
type SelectCancellationRequest struct {
	EntryID int `json:"entryId"`
}

// TranscriptResponse is the response for reading the transcript.
type TranscriptResponse struct {
	Messages []ChatEntry `json:"messages"`
	Busy     bool        `json:"busy"`
}
