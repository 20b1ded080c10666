// Package mock provides deterministic model handles. They are used in place
// of the live Gemini models when the process runs in test mode, so that no
// network client is ever created.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/casualjim/chatmodel/api"
	"github.com/casualjim/chatmodel/provider"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
)

const (
	ChatModelName      = "mock-chat-model"
	ReasoningModelName = "mock-reasoning-model"

	// WeatherToolName is the tool the chat mock asks for when a prompt mentions the weather.
	WeatherToolName = "getWeather"
)

// Responder computes the reply for a completion request. It must be deterministic.
type Responder func(provider.CompletionParams) provider.Message

// Reply returns a Responder that always answers with text.
func Reply(text string) Responder {
	return func(provider.CompletionParams) provider.Message {
		return provider.AssistantMessage(text)
	}
}

// Provider replays the reply of a Responder as provider events. Streamed
// replies are cut into word deltas, reasoning first.
type Provider struct {
	respond Responder
}

func New(respond Responder) *Provider {
	return &Provider{respond: respond}
}

func (p *Provider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	reply := p.respond(params)
	reply.Role = provider.RoleAssistant

	events := make(chan provider.StreamEvent)
	go func() {
		defer close(events)

		send := func(ev provider.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		defer func() {
			if err := ctx.Err(); err != nil {
				// the receiver may be gone already
				select {
				case events <- provider.Error{RunID: params.RunID, TurnID: params.TurnID, Err: err, Timestamp: now()}:
				default:
				}
			}
		}()

		if params.Stream {
			if !send(provider.Delim{RunID: params.RunID, TurnID: params.TurnID, Delim: provider.DelimStart}) {
				return
			}
			for _, delta := range deltas(reply) {
				chunk := provider.Chunk{RunID: params.RunID, TurnID: params.TurnID, Chunk: delta, Timestamp: now()}
				if !send(chunk) {
					return
				}
			}
			if !send(provider.Delim{RunID: params.RunID, TurnID: params.TurnID, Delim: provider.DelimEnd}) {
				return
			}
		}
		send(provider.Response{RunID: params.RunID, TurnID: params.TurnID, Response: reply, Timestamp: now()})
	}()
	return events, nil
}

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now())
}

func deltas(reply provider.Message) []provider.Message {
	var result []provider.Message
	for _, word := range words(reply.Reasoning) {
		result = append(result, provider.Message{Role: provider.RoleAssistant, Reasoning: word})
	}
	for _, word := range words(reply.Content) {
		result = append(result, provider.Message{Role: provider.RoleAssistant, Content: word})
	}
	if reply.HasToolCalls() {
		result = append(result, provider.Message{Role: provider.RoleAssistant, ToolCalls: reply.ToolCalls})
	}
	return result
}

// words splits text after every space, so the pieces concatenate back to text.
func words(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(text, " ")
}

// Model is a named handle over a fixed provider.
type Model struct {
	name string
	prov provider.Provider
}

var _ api.Model = (*Model)(nil)

func NewModel(name string, p provider.Provider) *Model {
	return &Model{name: name, prov: p}
}

func (m *Model) Name() string {
	return m.name
}

func (m *Model) Provider() provider.Provider {
	return m.prov
}

var (
	chatModel      = sync.OnceValue(func() api.Model { return NewModel(ChatModelName, New(chatReply)) })
	reasoningModel = sync.OnceValue(func() api.Model { return NewModel(ReasoningModelName, New(reasoningReply)) })
)

// ChatModel returns the shared mock chat handle.
//
// It answers "Hello, world!" unless the last user message mentions the
// weather and the weather tool is offered, in which case it calls the tool
// for San Francisco once and then summarises the tool result.
func ChatModel() api.Model {
	return chatModel()
}

// ReasoningModel returns the shared mock reasoning handle. Its replies carry
// reasoning, already separated from the answer.
func ReasoningModel() api.Model {
	return reasoningModel()
}

func chatReply(params provider.CompletionParams) provider.Message {
	if len(params.Messages) == 0 {
		return provider.AssistantMessage("Hello, world!")
	}

	last := params.Messages[len(params.Messages)-1]
	switch {
	case last.Role == provider.RoleTool:
		return provider.AssistantMessage("The weather tool returned: " + last.Content)
	case last.Role == provider.RoleUser && offersTool(params, WeatherToolName) && strings.Contains(strings.ToLower(last.Content), "weather"):
		args, _ := json.Marshal(map[string]string{"city": "San Francisco"})
		return provider.Message{
			Role: provider.RoleAssistant,
			ToolCalls: []provider.ToolCall{{
				ID:        "call_" + WeatherToolName + "_1",
				Name:      WeatherToolName,
				Arguments: string(args),
			}},
		}
	default:
		return provider.AssistantMessage("Hello, world!")
	}
}

func reasoningReply(provider.CompletionParams) provider.Message {
	return provider.Message{
		Role:      provider.RoleAssistant,
		Reasoning: "The user greeted me, so a short greeting back is enough.",
		Content:   "Hi there!",
	}
}

func offersTool(params provider.CompletionParams, name string) bool {
	for _, def := range params.Tools {
		if def.Name == name {
			return true
		}
	}
	return false
}
