package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casualjim/chatmodel/pkg/slogx"
	"github.com/casualjim/chatmodel/provider"
	"github.com/casualjim/chatmodel/tool"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Provider sends completions to an OpenAI-compatible chat-completions endpoint.
type Provider struct {
	client *openai.Client
}

func New(options ...option.RequestOption) *Provider {
	return &Provider{client: openai.NewClient(options...)}
}

var _ provider.Provider = (*Provider)(nil)

func (p *Provider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	req, err := p.buildRequest(ctx, &params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	slog.DebugContext(ctx, "chat completion",
		slogx.Component("provider/openai"),
		slog.String("model", params.Model.Name()),
		slog.Bool("stream", params.Stream),
		slog.Int("messages", len(params.Messages)),
		slog.Int("tools", len(params.Tools)),
	)

	events := make(chan provider.StreamEvent, 10)
	t := &turn{runID: params.RunID, turnID: params.TurnID, events: events}
	go func() {
		defer close(events)
		if params.Stream {
			p.stream(ctx, req, t)
			return
		}
		reply, err := p.client.Chat.Completions.New(ctx, req)
		if err != nil {
			t.fail(err)
			return
		}
		t.respond(reply)
	}()
	return events, nil
}

func (p *Provider) buildRequest(_ context.Context, params *provider.CompletionParams) (openai.ChatCompletionNewParams, error) {
	if params.Model == nil {
		return openai.ChatCompletionNewParams{}, errors.New("model is required")
	}

	req := openai.ChatCompletionNewParams{
		Model:    openai.F(params.Model.Name()),
		Messages: openai.F(messagesToOpenAI(params.Instructions, params.Messages)),
		N:        openai.Int(1),
	}
	if len(params.Tools) == 0 {
		return req, nil
	}

	tools := make([]openai.ChatCompletionToolParam, 0, len(params.Tools))
	for _, def := range params.Tools {
		fn, err := functionDefinition(def)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		tools = append(tools, openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(fn),
		})
	}
	req.Tools = openai.F(tools)
	return req, nil
}

// functionDefinition converts a tool into the function shape the endpoint
// expects, round-tripping the reflected schema into a plain map.
func functionDefinition(def tool.Definition) (openai.FunctionDefinitionParam, error) {
	if def.Function == nil {
		return openai.FunctionDefinitionParam{}, fmt.Errorf("tool %s has nil function", def.Name)
	}
	name, schema := def.ToNameAndSchema()

	raw, err := json.Marshal(schema)
	if err != nil {
		return openai.FunctionDefinitionParam{}, fmt.Errorf("failed to convert tool %s schema: %w", name, err)
	}
	parameters := make(shared.FunctionParameters)
	if err := json.Unmarshal(raw, &parameters); err != nil {
		return openai.FunctionDefinitionParam{}, fmt.Errorf("failed to convert tool %s schema: %w", name, err)
	}

	fn := openai.FunctionDefinitionParam{
		Name:       openai.String(name),
		Parameters: openai.F(parameters),
	}
	if desc := strings.TrimSpace(def.Description); desc != "" {
		fn.Description = openai.String(desc)
	}
	return fn, nil
}

// stream relays the deltas of a streamed completion. A cancelled context ends
// the turn with an Error carrying ctx.Err().
func (p *Provider) stream(ctx context.Context, req openai.ChatCompletionNewParams, t *turn) {
	s := p.client.Chat.Completions.NewStreaming(ctx, req)
	defer s.Close()
	if err := s.Err(); err != nil {
		t.fail(err)
		return
	}

	var (
		acc     openai.ChatCompletionAccumulator
		started bool
	)
	for ctx.Err() == nil && s.Next() {
		if !started {
			started = true
			t.delim(provider.DelimStart)
		}
		chunk := s.Current()
		acc.AddChunk(chunk)
		t.delta(&chunk)
	}

	switch {
	case ctx.Err() != nil:
		t.fail(ctx.Err())
	case s.Err() != nil:
		t.fail(s.Err())
	case started:
		t.delim(provider.DelimEnd)
		t.respond(&acc.ChatCompletion)
	}
}

// turn stamps the events of one completion with its identifiers.
type turn struct {
	runID  uuid.UUID
	turnID uuid.UUID
	events chan<- provider.StreamEvent
}

func (t *turn) delim(d string) {
	t.events <- provider.Delim{RunID: t.runID, TurnID: t.turnID, Delim: d}
}

func (t *turn) fail(err error) {
	t.events <- provider.Error{RunID: t.runID, TurnID: t.turnID, Err: err, Timestamp: now()}
}

func (t *turn) delta(chunk *openai.ChatCompletionChunk) {
	if len(chunk.Choices) == 0 {
		t.delim(provider.DelimEmpty)
		return
	}
	d := chunk.Choices[0].Delta
	msg := provider.Message{Role: provider.RoleAssistant, Content: d.Content}
	for _, tc := range d.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	t.events <- provider.Chunk{RunID: t.runID, TurnID: t.turnID, Chunk: msg, Timestamp: now()}
}

func (t *turn) respond(reply *openai.ChatCompletion) {
	if len(reply.Choices) == 0 {
		t.delim(provider.DelimEmpty)
		return
	}
	m := reply.Choices[0].Message
	msg := provider.Message{Role: provider.RoleAssistant, Content: m.Content}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	t.events <- provider.Response{RunID: t.runID, TurnID: t.turnID, Response: msg, Timestamp: now()}
}

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now())
}

func messagesToOpenAI(instructions string, msgs []provider.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if strings.TrimSpace(instructions) != "" {
		result = append(result, openai.SystemMessage(instructions))
	}

	for _, msg := range msgs {
		switch {
		case msg.Role == provider.RoleUser:
			result = append(result, openai.UserMessageParts(openai.TextPart(msg.Content)))
		case msg.Role == provider.RoleTool:
			result = append(result, openai.ToolMessage(msg.ToolCallID, msg.Content))
		case msg.Role == provider.RoleAssistant && msg.HasToolCalls():
			result = append(result, toolCallsMessage(msg.ToolCalls))
		case msg.Role == provider.RoleAssistant:
			reply := openai.ChatCompletionAssistantMessageParam{
				Role: openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			reply.Content.Value = append(reply.Content.Value, openai.TextPart(msg.Content))
			result = append(result, reply)
		}
	}
	return result
}

func toolCallsMessage(calls []provider.ToolCall) openai.ChatCompletionMessageParam {
	params := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, call := range calls {
		params = append(params, openai.ChatCompletionMessageToolCallParam{
			ID:   openai.String(call.ID),
			Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
			Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      openai.String(call.Name),
				Arguments: openai.String(call.Arguments),
			}),
		})
	}
	return openai.ChatCompletionMessageParam{
		Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
		ToolCalls: openai.F[any](params),
	}
}
