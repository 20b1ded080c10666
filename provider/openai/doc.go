/*
Package openai implements provider.Provider over the OpenAI chat completions
wire protocol. The live chat models are Gemini models reached through Google's
OpenAI-compatible endpoint, so the same client serves both.

# Models

  - GeminiFlash(): gemini-2.5-flash, the default chat and reasoning backend
  - GeminiFlashLite(): gemini-2.5-flash-lite, used for titles and low latency chat

Handles are cheap to create: the underlying HTTP client is only built the first
time Provider() is called, so a handle that is never invoked never touches the
network.

	model := openai.GeminiFlash(
		option.WithBaseURL(openai.GeminiBaseURL),
		option.WithAPIKey(os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY")),
	)

# Streaming

With CompletionParams.Stream set, the provider emits Delim{"start"}, one Chunk
per upstream delta, Delim{"end"} and a final Response assembled with the SDK's
accumulator. Without it a single Response is emitted. Context cancellation ends
the stream with an Error carrying ctx.Err().

Tools are converted to function definitions using the schema produced by
tool.Definition.ToNameAndSchema.
*/
package openai
