// Package chat runs a conversation turn against a model handle: it streams
// the completion, executes the tools the model asks for and feeds their
// results back until the model answers with text or the step limit is hit.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/casualjim/chatmodel/api"
	"github.com/casualjim/chatmodel/pkg/slogx"
	"github.com/casualjim/chatmodel/provider"
	"github.com/casualjim/chatmodel/tool"
	"github.com/google/uuid"
)

// DefaultMaxSteps bounds the number of completions in one run.
const DefaultMaxSteps = 5

var (
	// ErrUnknownTool is returned when the model calls a tool it was not given.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrNoResponse is returned when a completion stream ends without a response.
	ErrNoResponse = errors.New("completion ended without a response")
)

// Hook observes a run as it happens.
type Hook interface {
	OnText(ctx context.Context, delta string)
	OnReasoning(ctx context.Context, delta string)
	OnToolCall(ctx context.Context, call provider.ToolCall)
	OnToolResult(ctx context.Context, call provider.ToolCall, result string)
}

// EventHook is implemented by hooks that also want the raw provider events,
// in the order the provider emitted them.
type EventHook interface {
	Hook
	OnEvent(ctx context.Context, event provider.StreamEvent)
}

// NopHook ignores everything.
type NopHook struct{}

func (NopHook) OnText(context.Context, string) {}
func (NopHook) OnReasoning(context.Context, string) {}
func (NopHook) OnToolCall(context.Context, provider.ToolCall) {}
func (NopHook) OnToolResult(context.Context, provider.ToolCall, string) {}

// Runner holds what stays the same across runs.
type Runner struct {
	Model        api.Model
	Tools        []tool.Definition
	Instructions string
	// MaxSteps is the number of completions a run may take, DefaultMaxSteps when zero.
	MaxSteps int
	Stream   bool
}

// Result is the outcome of a run.
type Result struct {
	RunID uuid.UUID
	// Messages holds the messages produced by the run, in order: assistant
	// messages and tool responses.
	Messages  []provider.Message
	Text      string
	Reasoning string
	Steps     int
	// StepLimitReached is set when the run stopped with tool calls still
	// being requested.
	StepLimitReached bool
}

// Run continues the conversation in history. A nil hook is allowed.
func (r *Runner) Run(ctx context.Context, history []provider.Message, hook Hook) (Result, error) {
	if r.Model == nil {
		return Result{}, fmt.Errorf("chat: model is required")
	}
	if hook == nil {
		hook = NopHook{}
	}
	maxSteps := r.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	tools := make(map[string]tool.Definition, len(r.Tools))
	for _, def := range r.Tools {
		name, _ := def.ToNameAndSchema()
		tools[name] = def
	}

	result := Result{RunID: uuid.Must(uuid.NewV7())}
	conversation := append([]provider.Message(nil), history...)

	for result.Steps < maxSteps {
		result.Steps++
		turnID := uuid.Must(uuid.NewV7())

		slog.DebugContext(ctx, "completion step",
			slogx.Component("chat"),
			slog.String("run_id", result.RunID.String()),
			slog.Int("step", result.Steps),
			slog.String("model", r.Model.Name()),
		)

		reply, err := r.complete(ctx, provider.CompletionParams{
			RunID:        result.RunID,
			TurnID:       turnID,
			Instructions: r.Instructions,
			Messages:     conversation,
			Stream:       r.Stream,
			Model:        r.Model,
			Tools:        r.Tools,
		}, hook)
		if err != nil {
			return result, err
		}

		conversation = append(conversation, reply)
		result.Messages = append(result.Messages, reply)
		if reply.Reasoning != "" {
			result.Reasoning = reply.Reasoning
		}

		if !reply.HasToolCalls() {
			result.Text = reply.Content
			return result, nil
		}

		for _, call := range reply.ToolCalls {
			def, ok := tools[call.Name]
			if !ok {
				return result, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
			}

			hook.OnToolCall(ctx, call)
			out, err := def.Call(ctx, call.Arguments)
			if err != nil {
				return result, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			hook.OnToolResult(ctx, call, out)

			response := provider.ToolResponse(call, out)
			conversation = append(conversation, response)
			result.Messages = append(result.Messages, response)
		}
	}

	result.StepLimitReached = true
	return result, nil
}

// complete runs one completion and returns the assistant message. Deltas are
// forwarded to the hook; without streaming the hook gets the whole reply.
func (r *Runner) complete(ctx context.Context, params provider.CompletionParams, hook Hook) (provider.Message, error) {
	events, err := r.Model.Provider().ChatCompletion(ctx, params)
	if err != nil {
		return provider.Message{}, fmt.Errorf("chat completion: %w", err)
	}

	var (
		reply    *provider.Message
		failure  error
		streamed bool
	)
	observer, _ := hook.(EventHook)
	// the channel is drained so the provider goroutine can exit
	for ev := range events {
		if failure != nil {
			continue
		}
		if observer != nil {
			observer.OnEvent(ctx, ev)
		}
		switch e := ev.(type) {
		case provider.Chunk:
			if e.Chunk.Reasoning != "" {
				streamed = true
				hook.OnReasoning(ctx, e.Chunk.Reasoning)
			}
			if e.Chunk.Content != "" {
				streamed = true
				hook.OnText(ctx, e.Chunk.Content)
			}
		case provider.Response:
			msg := e.Response
			reply = &msg
		case provider.Error:
			failure = e
		}
	}

	if failure != nil {
		return provider.Message{}, failure
	}
	if reply == nil {
		return provider.Message{}, ErrNoResponse
	}
	if !streamed {
		if reply.Reasoning != "" {
			hook.OnReasoning(ctx, reply.Reasoning)
		}
		if reply.Content != "" {
			hook.OnText(ctx, reply.Content)
		}
	}
	reply.Role = provider.RoleAssistant
	return *reply, nil
}
