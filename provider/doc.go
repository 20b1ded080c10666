// Package provider defines the contract every model backend implements: a
// Provider turns CompletionParams into a channel of StreamEvent values.
//
// A completion emits, in order:
//  1. Delim{"start"} followed by zero or more Chunk events (streaming only)
//  2. Delim{"end"} (streaming only)
//  3. exactly one Response carrying the complete assistant Message
//
// or terminates early with an Error event. The channel is always closed by
// the provider.
//
// Chunks and Responses carry a Message. In a Chunk every field holds only the
// newly generated delta; Reasoning is populated by middleware that separates a
// model's internal thinking from the answer (see package middleware).
//
// Example usage:
//
//	events, err := model.Provider().ChatCompletion(ctx, provider.CompletionParams{
//	    RunID:    uuid.Must(uuid.NewV7()),
//	    Messages: []provider.Message{provider.UserMessage("Weather in London?")},
//	    Stream:   true,
//	    Model:    model,
//	    Tools:    []tool.Definition{weatherTool.Definition()},
//	})
//	if err != nil {
//	    return err
//	}
//
//	for event := range events {
//	    switch e := event.(type) {
//	    case provider.Chunk:
//	        // incremental text or reasoning
//	    case provider.Response:
//	        // complete message, possibly with tool calls
//	    case provider.Error:
//	        // failure, last event
//	    }
//	}
package provider
