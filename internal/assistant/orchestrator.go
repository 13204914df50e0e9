package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trainerhub/schedule-assistant/internal/llm"
	"github.com/trainerhub/schedule-assistant/internal/model"
	"github.com/trainerhub/schedule-assistant/internal/notify"
	"github.com/trainerhub/schedule-assistant/internal/schedule"
	"github.com/trainerhub/schedule-assistant/pkg/logger"
	"github.com/trainerhub/schedule-assistant/pkg/metrics"
)

// ErrBusy is returned when a submit arrives while a turn is in flight.
var ErrBusy = errors.New("a chat turn is already in progress")

// ErrEmptyMessage is returned for blank submissions.
var ErrEmptyMessage = errors.New("message is empty")

// Fixed user-facing messages for the failure taxonomy.
const (
	msgUnavailable  = "The AI assistant is currently unavailable. Please ensure the API key is configured correctly by the administrator."
	msgPermission   = "I couldn't reach the language model: the request was rejected. The administrator needs to verify the API credentials."
	msgTransport    = "Sorry, I encountered an error. Please try again later."
	msgUnrecognized = "Sorry, I received an unexpected response. Please try rephrasing your request."

	greeting = "Hello Admin! Welcome to the SG School Trainer Hub. You can manage all trainer schedules here. How can I assist you?"
)

var greetingFollowUps = []model.FollowUp{
	{Text: "What's on the schedule for today?"},
	{Text: "Are there any pending sessions?"},
	{Text: "I need to cancel a session."},
}

var genericFollowUps = []model.FollowUp{
	{Text: "What's on the schedule for today?"},
	{Text: "Are there any pending sessions?"},
}

// ToolRunner resolves one tool invocation. Satisfied by *Executor.
type ToolRunner interface {
	Execute(ctx context.Context, inv model.ToolInvocation) Outcome
}

// Orchestrator drives a chat turn: it serializes history and schedule
// state into an LLM request, classifies the response, resolves tool
// invocations and appends exactly one terminal transcript entry.
//
// One orchestrator owns one admin transcript. Submissions while a turn is
// in flight are rejected, so at most one turn mutates the store at a time.
type Orchestrator struct {
	store  *schedule.Store
	client llm.Client
	runner ToolRunner
	sink   notify.Sink
	model  string
	logger *logger.Logger

	mu      sync.Mutex
	entries []model.ChatEntry
	busy    bool
}

// New creates an orchestrator. client may be nil when no API key is
// configured; turns then resolve to the unavailable message without
// calling out.
func New(store *schedule.Store, client llm.Client, runner ToolRunner, sink notify.Sink, modelName string, log *logger.Logger) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		client: client,
		runner: runner,
		sink:   sink,
		model:  modelName,
		logger: log,
	}
	first := o.newEntry(model.RoleAssistant, greeting)
	first.FollowUps = append([]model.FollowUp(nil), greetingFollowUps...)
	o.entries = []model.ChatEntry{first}
	return o
}

// History returns a copy of the transcript and whether a turn is in
// flight.
func (o *Orchestrator) History() ([]model.ChatEntry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]model.ChatEntry, len(o.entries))
	copy(out, o.entries)
	return out, o.busy
}

// Submit runs one chat turn. It returns ErrBusy while another turn is in
// flight and ErrEmptyMessage for blank input; every other failure mode is
// resolved into a transcript entry rather than an error.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	o.busy = true

	// A new user turn invalidates the previous entry's interactive
	// affordances; history must never offer stale choices.
	if n := len(o.entries); n > 0 {
		o.entries[n-1].FollowUps = nil
		o.entries[n-1].PendingConfirmation = nil
	}

	o.entries = append(o.entries, o.newEntry(model.RoleUser, text))
	placeholder := o.newEntry(model.RoleAssistant, "")
	placeholder.Pending = true
	o.entries = append(o.entries, placeholder)

	history := make([]model.ChatEntry, 0, len(o.entries)-1)
	for _, e := range o.entries {
		if !e.Pending {
			history = append(history, e)
		}
	}
	o.mu.Unlock()

	final := o.resolve(ctx, history)

	o.mu.Lock()
	o.entries[len(o.entries)-1] = final
	o.busy = false
	o.mu.Unlock()
	return nil
}

// SelectForCancellation submits the canonical cancellation message for the
// chosen entry, re-entering the normal turn flow.
func (o *Orchestrator) SelectForCancellation(ctx context.Context, entryID int) error {
	entry, err := o.store.Get(entryID)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("I want to cancel the session at %s on %s (ID: %d).", entry.SchoolName, entry.Date, entry.ID)
	return o.Submit(ctx, message)
}

// resolve produces the terminal assistant entry for one turn. It never
// panics the transcript into an unresolved state: every path ends in an
// entry.
func (o *Orchestrator) resolve(ctx context.Context, history []model.ChatEntry) model.ChatEntry {
	if o.client == nil {
		metrics.ChatTurnsTotal.WithLabelValues("unavailable").Inc()
		return o.newEntry(model.RoleAssistant, msgUnavailable)
	}

	system := BuildSystemInstruction(time.Now(), o.store.List())

	messages := make([]llm.ChatMessage, 0, len(history))
	for _, e := range history {
		role := "assistant"
		if e.Role == model.RoleUser {
			role = "user"
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: e.Content})
	}

	start := time.Now()
	resp, err := o.client.Complete(ctx, &llm.CompletionRequest{
		Model:    o.model,
		System:   system,
		Messages: messages,
	})
	if err != nil {
		metrics.RecordLLMRequest(o.model, "error", time.Since(start).Seconds(), 0, 0)
		o.logger.Error("LLM completion failed", zap.Error(err))
		metrics.ChatTurnsTotal.WithLabelValues("llm_error").Inc()
		if llm.IsPermissionError(err) {
			return o.newEntry(model.RoleAssistant, msgPermission)
		}
		return o.newEntry(model.RoleAssistant, msgTransport)
	}
	metrics.RecordLLMRequest(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	cls, err := Classify(resp.Content)
	if err != nil {
		o.logger.Warn("unrecognized model response",
			zap.Error(err),
			zap.String("raw", resp.Content),
		)
		metrics.ChatTurnsTotal.WithLabelValues("unrecognized").Inc()
		return o.newEntry(model.RoleAssistant, msgUnrecognized)
	}

	switch cls.Kind {
	case KindToolBatch, KindToolSingle:
		return o.resolveTools(ctx, cls)
	case KindCancellationPrompt:
		return o.resolveCancellationPrompt(cls)
	default:
		return o.resolveAnswer(cls)
	}
}

// resolveTools executes the invocations and reports their outcomes in the
// order the model supplied them. Within a batch all invocations are
// dispatched before any is awaited; ordering is guaranteed on
// presentation, not on execution.
func (o *Orchestrator) resolveTools(ctx context.Context, cls Classification) model.ChatEntry {
	outcomes := make([]Outcome, len(cls.Invocations))

	var wg sync.WaitGroup
	for i, inv := range cls.Invocations {
		wg.Add(1)
		go func(i int, inv model.ToolInvocation) {
			defer wg.Done()
			outcomes[i] = o.runner.Execute(ctx, inv)
		}(i, inv)
	}
	wg.Wait()

	// Secondary effects surface here, not inside the executor.
	for _, outcome := range outcomes {
		if outcome.Notify != "" {
			o.sink.Notify(ctx, outcome.Notify)
		}
	}

	var content string
	if cls.Kind == KindToolSingle {
		content = outcomes[0].Text
		metrics.ChatTurnsTotal.WithLabelValues("tool_single").Inc()
	} else {
		lines := make([]string, len(outcomes))
		for i, outcome := range outcomes {
			lines[i] = "- " + outcome.Text
		}
		content = strings.Join(lines, "\n")
		metrics.ChatTurnsTotal.WithLabelValues("tool_batch").Inc()
	}

	entry := o.newEntry(model.RoleAssistant, content)
	entry.FollowUps = append([]model.FollowUp(nil), genericFollowUps...)
	return entry
}

// resolveCancellationPrompt attaches the live Confirmed and Pending
// entries; whatever list the model supplied was discarded by the
// classifier.
func (o *Orchestrator) resolveCancellationPrompt(cls Classification) model.ChatEntry {
	metrics.ChatTurnsTotal.WithLabelValues("cancellation_prompt").Inc()
	entry := o.newEntry(model.RoleAssistant, cls.Prompt)
	entry.PendingConfirmation = &model.PendingConfirmation{
		Prompt:  cls.Prompt,
		Entries: o.store.Cancellable(),
	}
	return entry
}

// resolveAnswer resets every suggested action store-wide, then re-attaches
// the current turn's entry-bound follow-ups. Unbound follow-ups ride on
// the transcript entry itself.
func (o *Orchestrator) resolveAnswer(cls Classification) model.ChatEntry {
	metrics.ChatTurnsTotal.WithLabelValues("answer").Inc()

	o.store.ClearAllSuggestedActions()

	entry := o.newEntry(model.RoleAssistant, cls.Answer)
	for _, fu := range cls.FollowUps {
		if fu.EntryID == nil {
			entry.FollowUps = append(entry.FollowUps, fu)
			continue
		}
		if err := o.store.AddSuggestedAction(*fu.EntryID, model.SuggestedAction{Text: fu.Text}); err != nil {
			o.logger.Warn("follow-up bound to unknown entry",
				zap.Int("entry_id", *fu.EntryID),
				zap.String("text", fu.Text),
			)
		}
	}
	return entry
}

func (o *Orchestrator) newEntry(role model.Role, content string) model.ChatEntry {
	return model.ChatEntry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}
