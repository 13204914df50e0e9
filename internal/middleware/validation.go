package middleware

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/trainerhub/schedule-assistant/internal/model"
)

// ValidateMessageContent validates chat message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 10000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateEntry validates the fields of a schedule entry submitted over
// the API. Transient annotations are not validated; the store owns those.
func ValidateEntry(req *model.CreateEntryRequest) error {
	if req.SchoolName == "" {
		return errors.New("schoolName is required")
	}
	if req.Topic == "" {
		return errors.New("topic is required")
	}
	if req.Trainer == "" {
		return errors.New("trainer is required")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return errors.New("time must be HH:mm")
	}
	switch req.Status {
	case model.StatusConfirmed, model.StatusPending, model.StatusCancelled:
	default:
		return errors.New("status must be Confirmed, Pending or Cancelled")
	}
	if req.ReminderMinutes < 0 {
		return errors.New("reminderMinutes cannot be negative")
	}
	return nil
}
