// Package model defines data structures for the schedule assistant.
package model

// Status is the lifecycle state of a schedule entry.
type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusPending   Status = "Pending"
	StatusCancelled Status = "Cancelled"
)

// SuggestedAction is a transient, entry-bound follow-up prompt surfaced in
// the UI. It is not part of the canonical record and is excluded from the
// field merging performed by schedule updates.
type SuggestedAction struct {
	Text string `json:"text"`
}

// ScheduleEntry represents one training-session booking.
type ScheduleEntry struct {
	ID                 int    `json:"id"`
	SchoolName         string `json:"schoolName"`
	Topic              string `json:"topic"`
	Date               string `json:"date"` // YYYY-MM-DD, no time zone
	Time               string `json:"time"` // HH:mm
	Status             Status `json:"status"`
	Trainer            string `json:"trainer"`
	Location           string `json:"location,omitempty"`
	Notes              string `json:"notes,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`
	ReminderMinutes    int    `json:"reminderMinutes,omitempty"`

	// SuggestedActions is transient UI state, managed independently of the
	// rest of the record.
	SuggestedActions []SuggestedAction `json:"suggestedActions,omitempty"`
}

// Cancellable reports whether the entry can still be offered for
// cancellation.
func (e ScheduleEntry) Cancellable() bool {
	return e.Status == StatusConfirmed || e.Status == StatusPending
}

// CreateEntryRequest is the request to create a schedule entry.
type CreateEntryRequest struct {
	SchoolName      string `json:"schoolName"`
	Topic           string `json:"topic"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Status          Status `json:"status"`
	Trainer         string `json:"trainer"`
	Location        string `json:"location,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ReminderMinutes int    `json:"reminderMinutes,omitempty"`
}

// ListEntriesResponse is the response for listing schedule entries.
type ListEntriesResponse struct {
	Entries []ScheduleEntry `json:"entries"`
	Total   int             `json:"total"`
}
