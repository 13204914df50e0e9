package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trainerhub/schedule-assistant/internal/model"
	"github.com/trainerhub/schedule-assistant/internal/schedule"
	"github.com/trainerhub/schedule-assistant/pkg/logger"
)

func newTestExecutor(t *testing.T) (*Executor, *schedule.Store) {
	t.Helper()
	store := schedule.NewSeeded(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	return NewExecutor(store, logger.NewNop()), store
}

func TestExecuteUpdateExisting(t *testing.T) {
	exec, store := newTestExecutor(t)

	before := len(store.List())
	outcome := exec.Execute(context.Background(), model.ToolInvocation{
		Name: ToolUpdateSchedule,
		Arguments: map[string]any{
			"id":                 float64(3),
			"status":             "Cancelled",
			"cancellationReason": "sick",
		},
	})

	if !strings.Contains(outcome.Text, "updated") {
		t.Fatalf("outcome text got=%q, want it to contain %q", outcome.Text, "updated")
	}
	if outcome.Notify != "" {
		t.Fatalf("unexpected notification %q", outcome.Notify)
	}
	if got := len(store.List()); got != before {
		t.Fatalf("entry count got=%d want=%d", got, before)
	}

	entry, err := store.Get(3)
	if err != nil {
		t.Fatalf("get entry 3: %v", err)
	}
	if entry.Status != model.StatusCancelled {
		t.Fatalf("status got=%q want=%q", entry.Status, model.StatusCancelled)
	}
	if entry.CancellationReason != "sick" {
		t.Fatalf("cancellationReason got=%q want=%q", entry.CancellationReason, "sick")
	}
	// Unspecified fields are retained.
	if entry.SchoolName != "National Junior College" {
		t.Fatalf("schoolName got=%q, unspecified field was not retained", entry.SchoolName)
	}
}

func TestExecuteUpdateUnknownID(t *testing.T) {
	exec, store := newTestExecutor(t)
	before := len(store.List())

	outcome := exec.Execute(context.Background(), model.ToolInvocation{
		Name:      ToolUpdateSchedule,
		Arguments: map[string]any{"id": float64(42), "status": "Confirmed"},
	})

	if !strings.Contains(outcome.Text, "couldn't find a session with ID 42") {
		t.Fatalf("outcome text got=%q", outcome.Text)
	}
	if got := len(store.List()); got != before {
		t.Fatalf("entry count got=%d want=%d", got, before)
	}
}

func TestExecuteAddAssignsFirstID(t *testing.T) {
	store := schedule.New()
	exec := NewExecutor(store, logger.NewNop())

	outcome := exec.Execute(context.Background(), model.ToolInvocation{
		Name: ToolUpdateSchedule,
		Arguments: map[string]any{
			"schoolName": "X",
			"topic":      "Y",
			"date":       "2024-01-01",
			"time":       "09:00",
			"status":     "Pending",
			"trainer":    "Z",
		},
	})

	if !strings.Contains(outcome.Text, "added") {
		t.Fatalf("outcome text got=%q, want it to contain %q", outcome.Text, "added")
	}

	entry, err := store.Get(1)
	if err != nil {
		t.Fatalf("get entry 1: %v", err)
	}
	if entry.SchoolName != "X" || entry.Trainer != "Z" {
		t.Fatalf("entry fields got=%+v", entry)
	}
	if entry.Status != model.StatusPending {
		t.Fatalf("status got=%q want=%q", entry.Status, model.StatusPending)
	}
}

func TestExecuteAddThenUpdateRoundTrip(t *testing.T) {
	store := schedule.New()
	exec := NewExecutor(store, logger.NewNop())

	exec.Execute(context.Background(), model.ToolInvocation{
		Name: ToolUpdateSchedule,
		Arguments: map[string]any{
			"schoolName": "X",
			"topic":      "Y",
			"date":       "2024-01-01",
			"time":       "09:00",
			"status":     "Pending",
			"trainer":    "Z",
			"location":   "Lab 4",
			"notes":      "bring laptops",
		},
	})

	exec.Execute(context.Background(), model.ToolInvocation{
		Name:      ToolUpdateSchedule,
		Arguments: map[string]any{"id": float64(1), "time": "10:30"},
	})

	entry, err := store.Get(1)
	if err != nil {
		t.Fatalf("get entry 1: %v", err)
	}
	if entry.Time != "10:30" {
		t.Fatalf("time got=%q want=%q", entry.Time, "10:30")
	}
	if entry.Location != "Lab 4" || entry.Notes != "bring laptops" || entry.Topic != "Y" {
		t.Fatalf("unspecified fields not preserved: %+v", entry)
	}
}

func TestExecuteReminderOnlyEmitsNotification(t *testing.T) {
	exec, store := newTestExecutor(t)

	outcome := exec.Execute(context.Background(), model.ToolInvocation{
		Name:      ToolUpdateSchedule,
		Arguments: map[string]any{"id": float64(2), "reminderMinutes": float64(15)},
	})

	if outcome.Notify == "" {
		t.Fatal("reminder-only update produced no notification")
	}
	if !strings.Contains(outcome.Text, "reminder") {
		t.Fatalf("outcome text got=%q, want reminder wording", outcome.Text)
	}

	entry, err := store.Get(2)
	if err != nil {
		t.Fatalf("get entry 2: %v", err)
	}
	if entry.ReminderMinutes != 15 {
		t.Fatalf("reminderMinutes got=%d want=15", entry.ReminderMinutes)
	}
}

func TestExecuteReminderWithOtherFieldsStaysSilent(t *testing.T) {
	exec, _ := newTestExecutor(t)

	outcome := exec.Execute(context.Background(), model.ToolInvocation{
		Name:      ToolUpdateSchedule,
		Arguments: map[string]any{"id": float64(2), "reminderMinutes": float64(15), "time": "16:00"},
	})

	if outcome.Notify != "" {
		t.Fatalf("unexpected notification %q", outcome.Notify)
	}
	if !strings.Contains(outcome.Text, "updated") {
		t.Fatalf("outcome text got=%q", outcome.Text)
	}
}

func TestExecuteSendNotification(t *testing.T) {
	exec, _ := newTestExecutor(t)

	outcome := exec.Execute(context.Background(), model.ToolInvocation{
		Name:      ToolSendNotification,
		Arguments: map[string]any{"message": "Session moved to 15:00."},
	})

	if outcome.Notify != "Session moved to 15:00." {
		t.Fatalf("notify got=%q", outcome.Notify)
	}
	if !strings.Contains(outcome.Text, "Session moved to 15:00.") {
		t.Fatalf("outcome text got=%q, want it to echo the message", outcome.Text)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	exec, _ := newTestExecutor(t)

	outcome := exec.Execute(context.Background(), model.ToolInvocation{
		Name:      "summon_dragon",
		Arguments: map[string]any{},
	})

	if outcome.Text != "Unknown tool: summon_dragon" {
		t.Fatalf("outcome text got=%q", outcome.Text)
	}
	if outcome.Notify != "" {
		t.Fatalf("unexpected notification %q", outcome.Notify)
	}
}

func TestIntArgAcceptsNumericString(t *testing.T) {
	exec, store := newTestExecutor(t)

	exec.Execute(context.Background(), model.ToolInvocation{
		Name:      ToolUpdateSchedule,
		Arguments: map[string]any{"id": "3", "status": "Confirmed"},
	})

	entry, err := store.Get(3)
	if err != nil {
		t.Fatalf("get entry 3: %v", err)
	}
	if entry.Status != model.StatusConfirmed {
		t.Fatalf("status got=%q want=%q", entry.Status, model.StatusConfirmed)
	}
}
