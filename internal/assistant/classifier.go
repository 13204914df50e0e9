// Package assistant contains the conversational core: the response
// classifier, the system prompt builder, the tool executor and the
// orchestrator that drives a chat turn end to end.
package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/trainerhub/schedule-assistant/internal/model"
)

// ErrContract is returned when model output parses as JSON but matches
// none of the response shapes the prompt contract allows.
var ErrContract = errors.New("response matches no known shape")

// Kind identifies which response shape the model produced.
type Kind int

const (
	// KindToolBatch is an ordered list of tool invocations.
	KindToolBatch Kind = iota
	// KindToolSingle is exactly one tool invocation.
	KindToolSingle
	// KindCancellationPrompt asks the admin to pick a session to cancel.
	KindCancellationPrompt
	// KindAnswer is a conversational answer with follow-up suggestions.
	KindAnswer
)

// Classification is the decoded form of one model response.
type Classification struct {
	Kind        Kind
	Invocations []model.ToolInvocation
	Prompt      string
	Answer      string
	FollowUps   []model.FollowUp
}

// actionPromptForCancellation is the action marker the prompt contract
// reserves for the cancellation workflow.
const actionPromptForCancellation = "PROMPT_FOR_CANCELLATION"

// envelope probes a JSON object for the fields that distinguish the three
// object shapes.
type envelope struct {
	Action            string          `json:"action"`
	Data              json.RawMessage `json:"data"`
	Response          *string         `json:"response"`
	FollowUpQuestions json.RawMessage `json:"followUpQuestions"`
	ToolName          string          `json:"tool_name"`
	Arguments         map[string]any  `json:"arguments"`
}

type cancellationData struct {
	Prompt string `json:"prompt"`
	// The model-supplied sessions list is intentionally ignored; the
	// orchestrator always substitutes the live store snapshot.
	Sessions json.RawMessage `json:"sessions"`
}

// Classify decodes raw model output into exactly one Classification.
// Plain non-JSON text is a valid conversational answer. Text that looks
// like JSON but fails to decode, or decodes into none of the allowed
// shapes, returns ErrContract.
func Classify(raw string) (Classification, error) {
	trimmed := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
		return classifyBatch(trimmed)
	case strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"):
		return classifyObject(trimmed)
	default:
		// Deliberate fallback: unstructured text is treated as a direct
		// answer, not an error.
		return Classification{Kind: KindAnswer, Answer: trimmed}, nil
	}
}

func classifyBatch(trimmed string) (Classification, error) {
	var invocations []model.ToolInvocation
	if err := json.Unmarshal([]byte(trimmed), &invocations); err != nil {
		return Classification{}, fmt.Errorf("decode tool batch: %w: %w", ErrContract, err)
	}
	if len(invocations) == 0 {
		return Classification{}, fmt.Errorf("empty tool batch: %w", ErrContract)
	}
	for i, inv := range invocations {
		if inv.Name == "" || inv.Arguments == nil {
			return Classification{}, fmt.Errorf("tool batch element %d missing tool_name or arguments: %w", i, ErrContract)
		}
	}
	return Classification{Kind: KindToolBatch, Invocations: invocations}, nil
}

func classifyObject(trimmed string) (Classification, error) {
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return Classification{}, fmt.Errorf("decode response object: %w: %w", ErrContract, err)
	}

	switch {
	case env.Action == actionPromptForCancellation:
		var data cancellationData
		if len(env.Data) == 0 {
			return Classification{}, fmt.Errorf("cancellation prompt missing data: %w", ErrContract)
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return Classification{}, fmt.Errorf("decode cancellation data: %w: %w", ErrContract, err)
		}
		if data.Prompt == "" {
			return Classification{}, fmt.Errorf("cancellation prompt missing prompt text: %w", ErrContract)
		}
		return Classification{Kind: KindCancellationPrompt, Prompt: data.Prompt}, nil

	case env.Response != nil && len(env.FollowUpQuestions) > 0:
		followUps, err := decodeFollowUps(env.FollowUpQuestions)
		if err != nil {
			return Classification{}, err
		}
		return Classification{Kind: KindAnswer, Answer: *env.Response, FollowUps: followUps}, nil

	case env.ToolName != "" && env.Arguments != nil && env.Action == "" && env.Response == nil:
		return Classification{
			Kind:        KindToolSingle,
			Invocations: []model.ToolInvocation{{Name: env.ToolName, Arguments: env.Arguments}},
		}, nil

	default:
		return Classification{}, fmt.Errorf("object matches no shape: %w", ErrContract)
	}
}

// decodeFollowUps normalizes follow-up items. Each item is either a bare
// prompt string or an object binding the prompt to a schedule entry.
func decodeFollowUps(raw json.RawMessage) ([]model.FollowUp, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("followUpQuestions is not an array: %w", ErrContract)
	}

	followUps := make([]model.FollowUp, 0, len(items))
	for i, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			followUps = append(followUps, model.FollowUp{Text: text})
			continue
		}

		var bound struct {
			Text    string `json:"text"`
			EntryID *int   `json:"entryId"`
		}
		if err := json.Unmarshal(item, &bound); err != nil || bound.Text == "" {
			return nil, fmt.Errorf("follow-up item %d is neither a string nor a bound prompt: %w", i, ErrContract)
		}
		followUps = append(followUps, model.FollowUp{Text: bound.Text, EntryID: bound.EntryID})
	}
	return followUps, nil
}
