package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trainerhub/schedule-assistant/internal/llm"
	"github.com/trainerhub/schedule-assistant/internal/model"
	"github.com/trainerhub/schedule-assistant/internal/schedule"
	"github.com/trainerhub/schedule-assistant/pkg/logger"
)

// stubClient returns canned content or an error. When block is non-nil,
// Complete signals started and waits until block is closed.
type stubClient struct {
	content string
	err     error
	block   chan struct{}
	started chan struct{}
}

func (c *stubClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if c.started != nil {
		close(c.started)
		c.started = nil
	}
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content, Model: "stub"}, nil
}

func (c *stubClient) Name() string     { return "stub" }
func (c *stubClient) Models() []string { return []string{"stub"} }

// stubRunner echoes the invocation's label argument, sleeping for the
// configured delay so completion order can be forced to differ from
// dispatch order.
type stubRunner struct {
	delays map[string]time.Duration

	mu        sync.Mutex
	completed []string
}

func (r *stubRunner) Execute(ctx context.Context, inv model.ToolInvocation) Outcome {
	label, _ := inv.Arguments["label"].(string)
	if d, ok := r.delays[label]; ok {
		time.Sleep(d)
	}
	r.mu.Lock()
	r.completed = append(r.completed, label)
	r.mu.Unlock()
	return Outcome{Text: label}
}

// stubSink records forwarded notifications.
type stubSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *stubSink) Notify(ctx context.Context, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func newTestOrchestrator(t *testing.T, client llm.Client) (*Orchestrator, *schedule.Store, *stubSink) {
	t.Helper()
	store := schedule.NewSeeded(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	sink := &stubSink{}
	runner := NewExecutor(store, logger.NewNop())
	return New(store, client, runner, sink, "stub", logger.NewNop()), store, sink
}

func lastEntry(t *testing.T, o *Orchestrator) model.ChatEntry {
	t.Helper()
	entries, _ := o.History()
	if len(entries) == 0 {
		t.Fatal("transcript is empty")
	}
	return entries[len(entries)-1]
}

func assertNoPending(t *testing.T, o *Orchestrator) {
	t.Helper()
	entries, _ := o.History()
	for i, e := range entries {
		if e.Pending {
			t.Fatalf("entry %d still pending after turn resolved", i)
		}
	}
}

func TestSubmitWhileBusyIsNoOp(t *testing.T) {
	client := &stubClient{
		content: "all quiet",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	o, _, _ := newTestOrchestrator(t, client)
	started := client.started

	done := make(chan error, 1)
	go func() {
		done <- o.Submit(context.Background(), "first message")
	}()
	<-started

	entries, busy := o.History()
	if !busy {
		t.Fatal("orchestrator should report busy while the model call is in flight")
	}
	lengthDuring := len(entries)

	if err := o.Submit(context.Background(), "second message"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second submit error got=%v want ErrBusy", err)
	}

	entries, _ = o.History()
	if len(entries) != lengthDuring {
		t.Fatalf("transcript length changed by rejected submit: got=%d want=%d", len(entries), lengthDuring)
	}

	close(client.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	assertNoPending(t, o)
}

func TestBatchOutcomesReportedInInputOrder(t *testing.T) {
	raw := `[
		{"tool_name": "noop", "arguments": {"label": "first"}},
		{"tool_name": "noop", "arguments": {"label": "second"}},
		{"tool_name": "noop", "arguments": {"label": "third"}}
	]`
	store := schedule.NewSeeded(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	runner := &stubRunner{delays: map[string]time.Duration{
		"first":  60 * time.Millisecond,
		"second": 30 * time.Millisecond,
		"third":  0,
	}}
	o := New(store, &stubClient{content: raw}, runner, &stubSink{}, "stub", logger.NewNop())

	if err := o.Submit(context.Background(), "reschedule everything"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	entry := lastEntry(t, o)
	want := "- first\n- second\n- third"
	if entry.Content != want {
		t.Fatalf("combined summary got=%q want=%q", entry.Content, want)
	}

	// Completion order should differ from dispatch order, proving the
	// ordering guarantee is on presentation.
	runner.mu.Lock()
	completed := append([]string(nil), runner.completed...)
	runner.mu.Unlock()
	if completed[0] == "first" {
		t.Fatalf("completion order %v unexpectedly matches dispatch order", completed)
	}
	if len(entry.FollowUps) != 2 {
		t.Fatalf("follow-ups length got=%d want=2", len(entry.FollowUps))
	}
	assertNoPending(t, o)
}

func TestBatchForwardsNotificationsInOrder(t *testing.T) {
	raw := `[
		{"tool_name": "send_notification", "arguments": {"message": "one"}},
		{"tool_name": "update_schedule", "arguments": {"id": 2, "time": "16:00"}},
		{"tool_name": "send_notification", "arguments": {"message": "two"}}
	]`
	client := &stubClient{content: raw}
	o, _, sink := newTestOrchestrator(t, client)

	if err := o.Submit(context.Background(), "notify them"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.messages) != 2 {
		t.Fatalf("notifications got=%v want exactly [one two]", sink.messages)
	}
	if sink.messages[0] != "one" || sink.messages[1] != "two" {
		t.Fatalf("notification order got=%v", sink.messages)
	}
}

func TestCancellationPromptCarriesLiveEntries(t *testing.T) {
	raw := `{"action": "PROMPT_FOR_CANCELLATION", "data": {"prompt": "Which session would you like to cancel?", "sessions": [{"id": 99, "schoolName": "Fabricated School"}]}}`
	o, store, _ := newTestOrchestrator(t, &stubClient{content: raw})

	if err := o.Submit(context.Background(), "I need to cancel a session"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	entry := lastEntry(t, o)
	if entry.PendingConfirmation == nil {
		t.Fatal("no pending confirmation payload on the assistant entry")
	}

	want := store.Cancellable()
	got := entry.PendingConfirmation.Entries
	if len(got) != len(want) {
		t.Fatalf("offered entries length got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("offered entry %d id got=%d want=%d", i, got[i].ID, want[i].ID)
		}
		if !got[i].Cancellable() {
			t.Fatalf("offered entry %d has status %q", i, got[i].Status)
		}
	}
	for _, e := range got {
		if e.ID == 99 || e.SchoolName == "Fabricated School" {
			t.Fatal("model-supplied session leaked into the confirmation payload")
		}
	}
}

func TestAnswerResetsSuggestedActions(t *testing.T) {
	raw := `{"response": "NJC is still pending.", "followUpQuestions": ["What about tomorrow?", {"text": "Confirm the NJC session?", "entryId": 3}]}`
	o, store, _ := newTestOrchestrator(t, &stubClient{content: raw})

	// A stale suggestion from a prior turn.
	if err := store.AddSuggestedAction(1, model.SuggestedAction{Text: "stale"}); err != nil {
		t.Fatalf("seed suggested action: %v", err)
	}

	if err := o.Submit(context.Background(), "any pending sessions?"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, e := range store.List() {
		switch e.ID {
		case 3:
			if len(e.SuggestedActions) != 1 || e.SuggestedActions[0].Text != "Confirm the NJC session?" {
				t.Fatalf("entry 3 suggested actions got=%+v", e.SuggestedActions)
			}
		default:
			if len(e.SuggestedActions) != 0 {
				t.Fatalf("entry %d retains suggested actions from a prior turn: %+v", e.ID, e.SuggestedActions)
			}
		}
	}

	entry := lastEntry(t, o)
	if len(entry.FollowUps) != 1 || entry.FollowUps[0].Text != "What about tomorrow?" {
		t.Fatalf("unbound follow-ups got=%+v", entry.FollowUps)
	}
}

func TestSubmitStripsPriorAffordances(t *testing.T) {
	raw := `{"action": "PROMPT_FOR_CANCELLATION", "data": {"prompt": "Which one?", "sessions": []}}`
	o, _, _ := newTestOrchestrator(t, &stubClient{content: raw})

	if err := o.Submit(context.Background(), "cancel something"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if lastEntry(t, o).PendingConfirmation == nil {
		t.Fatal("expected a pending confirmation after the first turn")
	}

	if err := o.Submit(context.Background(), "actually never mind"); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	entries, _ := o.History()
	for i, e := range entries[:len(entries)-1] {
		if e.PendingConfirmation != nil {
			t.Fatalf("entry %d retains a stale pending confirmation", i)
		}
		if len(e.FollowUps) != 0 {
			t.Fatalf("entry %d retains stale follow-ups: %+v", i, e.FollowUps)
		}
	}
}

func TestFailureTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
		want   string
	}{
		{"no client configured", nil, msgUnavailable},
		{"permission failure", &stubClient{err: errors.New("request failed: 403 Forbidden")}, msgPermission},
		{"transport failure", &stubClient{err: errors.New("connection reset by peer")}, msgTransport},
		{"contract violation", &stubClient{content: `{"foo": "bar"}`}, msgUnrecognized},
		{"malformed json", &stubClient{content: `{"tool_name": `}, msgUnrecognized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o, _, _ := newTestOrchestrator(t, tc.client)

			if err := o.Submit(context.Background(), "hello"); err != nil {
				t.Fatalf("submit: %v", err)
			}

			entry := lastEntry(t, o)
			if entry.Content != tc.want {
				t.Fatalf("terminal entry got=%q want=%q", entry.Content, tc.want)
			}
			assertNoPending(t, o)
		})
	}
}

func TestSelectForCancellationSynthesizesCanonicalMessage(t *testing.T) {
	raw := `{"response": "Noted, what is the reason?", "followUpQuestions": ["It was a scheduling conflict.", "The trainer is unavailable."]}`
	o, store, _ := newTestOrchestrator(t, &stubClient{content: raw})

	if err := o.SelectForCancellation(context.Background(), 3); err != nil {
		t.Fatalf("select for cancellation: %v", err)
	}

	entries, _ := o.History()
	var userEntry *model.ChatEntry
	for i := range entries {
		if entries[i].Role == model.RoleUser {
			userEntry = &entries[i]
		}
	}
	if userEntry == nil {
		t.Fatal("no user entry appended")
	}

	entry3, err := store.Get(3)
	if err != nil {
		t.Fatalf("get entry 3: %v", err)
	}
	if !strings.Contains(userEntry.Content, entry3.SchoolName) {
		t.Fatalf("canonical message %q does not name the school", userEntry.Content)
	}
	if !strings.Contains(userEntry.Content, "(ID: 3)") {
		t.Fatalf("canonical message %q does not carry the id", userEntry.Content)
	}
}

func TestSelectForCancellationUnknownEntry(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubClient{content: "irrelevant"})

	if err := o.SelectForCancellation(context.Background(), 404); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("error got=%v want ErrNotFound", err)
	}
}

func TestEmptySubmitRejected(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &stubClient{content: "irrelevant"})

	if err := o.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("error got=%v want ErrEmptyMessage", err)
	}

	entries, _ := o.History()
	if len(entries) != 1 {
		t.Fatalf("transcript length got=%d want=1 (greeting only)", len(entries))
	}
}

func TestGreetingSeedsTranscript(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, nil)

	entries, busy := o.History()
	if busy {
		t.Fatal("fresh orchestrator should not be busy")
	}
	if len(entries) != 1 {
		t.Fatalf("transcript length got=%d want=1", len(entries))
	}
	if entries[0].Role != model.RoleAssistant {
		t.Fatalf("greeting role got=%q", entries[0].Role)
	}
	if len(entries[0].FollowUps) != 3 {
		t.Fatalf("greeting follow-ups got=%d want=3", len(entries[0].FollowUps))
	}
}
