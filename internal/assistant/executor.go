package assistant

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/trainerhub/schedule-assistant/internal/model"
	"github.com/trainerhub/schedule-assistant/internal/schedule"
	"github.com/trainerhub/schedule-assistant/pkg/logger"
	"github.com/trainerhub/schedule-assistant/pkg/metrics"
)

// Tool names recognized by the executor.
const (
	ToolUpdateSchedule   = "update_schedule"
	ToolSendNotification = "send_notification"
)

// Outcome is the result of one tool invocation. Text is the user-facing
// summary line. Notify, when non-empty, is a notification the caller
// should forward to the sink; the executor itself never touches the sink.
type Outcome struct {
	Text   string
	Notify string
}

// Executor resolves tool invocations against the schedule store.
type Executor struct {
	store  *schedule.Store
	logger *logger.Logger
}

// NewExecutor creates a tool executor backed by store.
func NewExecutor(store *schedule.Store, log *logger.Logger) *Executor {
	return &Executor{store: store, logger: log}
}

// Execute resolves a single invocation. Failures are recovered locally and
// reported through the outcome text; Execute never returns an error so one
// bad invocation cannot abort the rest of a batch.
func (e *Executor) Execute(ctx context.Context, inv model.ToolInvocation) Outcome {
	switch inv.Name {
	case ToolUpdateSchedule:
		return e.updateSchedule(inv.Arguments)
	case ToolSendNotification:
		return e.sendNotification(inv.Arguments)
	default:
		e.logger.Warn("unknown tool requested", zap.String("tool", inv.Name))
		metrics.RecordToolInvocation(inv.Name, "unknown_tool")
		return Outcome{Text: fmt.Sprintf("Unknown tool: %s", inv.Name)}
	}
}

func (e *Executor) updateSchedule(args map[string]any) Outcome {
	id, hasID := intArg(args, "id")
	if !hasID {
		entry := e.store.Add(mergeEntry(model.ScheduleEntry{}, args))
		metrics.RecordToolInvocation(ToolUpdateSchedule, "added")
		return Outcome{Text: fmt.Sprintf("OK, I've added the new session for %q at %q to the schedule.", entry.Trainer, entry.SchoolName)}
	}

	existing, err := e.store.Get(id)
	if err != nil {
		metrics.RecordToolInvocation(ToolUpdateSchedule, "not_found")
		return Outcome{Text: fmt.Sprintf("Sorry, I couldn't find a session with ID %d.", id)}
	}

	updated := mergeEntry(existing, args)
	if err := e.store.Update(updated); err != nil {
		// Entry vanished between Get and Update; report as a lookup miss.
		metrics.RecordToolInvocation(ToolUpdateSchedule, "not_found")
		return Outcome{Text: fmt.Sprintf("Sorry, I couldn't find a session with ID %d.", id)}
	}

	metrics.RecordToolInvocation(ToolUpdateSchedule, "updated")

	if reminderOnly(args) {
		return Outcome{
			Text:   fmt.Sprintf("OK, I've set a reminder %d minutes before the session at %q.", updated.ReminderMinutes, updated.SchoolName),
			Notify: fmt.Sprintf("Reminder set: %s at %s, %d minutes before start.", updated.Topic, updated.SchoolName, updated.ReminderMinutes),
		}
	}

	return Outcome{Text: fmt.Sprintf("OK, I've updated the session for %q at %q.", updated.Trainer, updated.SchoolName)}
}

func (e *Executor) sendNotification(args map[string]any) Outcome {
	message, _ := args["message"].(string)
	if message == "" {
		message = "Notification sent!"
	}
	metrics.RecordToolInvocation(ToolSendNotification, "sent")
	return Outcome{
		Text:   fmt.Sprintf("Notification sent: %s", message),
		Notify: message,
	}
}

// reminderOnly reports whether the only changed field besides id is the
// reminder lead-time.
func reminderOnly(args map[string]any) bool {
	if len(args) != 2 {
		return false
	}
	_, hasID := args["id"]
	_, hasReminder := args["reminderMinutes"]
	return hasID && hasReminder
}

// mergeEntry overlays the known argument keys onto base. Unspecified
// fields are retained; unknown keys are ignored; suggested actions are
// never part of the merge.
func mergeEntry(base model.ScheduleEntry, args map[string]any) model.ScheduleEntry {
	if v, ok := stringArg(args, "schoolName"); ok {
		base.SchoolName = v
	}
	if v, ok := stringArg(args, "topic"); ok {
		base.Topic = v
	}
	if v, ok := stringArg(args, "date"); ok {
		base.Date = v
	}
	if v, ok := stringArg(args, "time"); ok {
		base.Time = v
	}
	if v, ok := stringArg(args, "status"); ok {
		base.Status = model.Status(v)
	}
	if v, ok := stringArg(args, "trainer"); ok {
		base.Trainer = v
	}
	if v, ok := stringArg(args, "location"); ok {
		base.Location = v
	}
	if v, ok := stringArg(args, "notes"); ok {
		base.Notes = v
	}
	if v, ok := stringArg(args, "cancellationReason"); ok {
		base.CancellationReason = v
	}
	if v, ok := intArg(args, "reminderMinutes"); ok {
		base.ReminderMinutes = v
	}
	return base
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

// intArg reads an integer argument. JSON numbers decode as float64;
// numeric strings are tolerated because models produce them occasionally.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}
