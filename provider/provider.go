package provider

import (
	"context"

	"github.com/casualjim/chatmodel/tool"
	"github.com/google/uuid"
)

// Provider defines the interface for model backends (a live chat-completions
// endpoint, a deterministic mock, or a middleware wrapping either of them).
// Implementations handle the specifics of talking to a backend while keeping
// one streaming contract for the rest of the application.
type Provider interface {
	ChatCompletion(context.Context, CompletionParams) (<-chan StreamEvent, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(context.Context, CompletionParams) (<-chan StreamEvent, error)

func (f ProviderFunc) ChatCompletion(ctx context.Context, params CompletionParams) (<-chan StreamEvent, error) {
	return f(ctx, params)
}

// CompletionParams encapsulates all parameters needed for a chat completion request.
type CompletionParams struct {
	// RunID uniquely identifies the run this completion belongs to
	RunID uuid.UUID

	// TurnID identifies this completion within the run
	TurnID uuid.UUID

	// Instructions provide the system prompt
	Instructions string

	// Messages contains the conversation history, oldest first
	Messages []Message

	// Stream indicates whether to receive responses as a stream of chunks.
	// When false the provider emits a single Response event.
	Stream bool

	// Model specifies which backend model to use for this completion
	Model interface {
		Name() string
		Provider() Provider
	}

	// Tools defines the functions the model may call
	Tools []tool.Definition

	// Prevents unkeyed literals
	_ struct{}
}
