package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/casualjim/chatmodel/provider"
	"github.com/casualjim/chatmodel/provider/mock"
	"github.com/casualjim/chatmodel/tool"
	"github.com/casualjim/chatmodel/tools/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	text      strings.Builder
	reasoning strings.Builder
	calls     []provider.ToolCall
	results   []string
}

func (r *recorder) OnText(_ context.Context, delta string) {
	r.text.WriteString(delta)
}

func (r *recorder) OnReasoning(_ context.Context, delta string) {
	r.reasoning.WriteString(delta)
}

func (r *recorder) OnToolCall(_ context.Context, call provider.ToolCall) {
	r.calls = append(r.calls, call)
}

func (r *recorder) OnToolResult(_ context.Context, _ provider.ToolCall, result string) {
	r.results = append(r.results, result)
}

type eventRecorder struct {
	recorder
	events []provider.StreamEvent
}

func (r *eventRecorder) OnEvent(_ context.Context, event provider.StreamEvent) {
	r.events = append(r.events, event)
}

type staticGeocoder struct{ calls int }

func (g *staticGeocoder) Geocode(context.Context, string) (weather.Coordinates, error) {
	g.calls++
	return weather.Coordinates{Latitude: 37.77, Longitude: -122.42}, nil
}

type staticForecaster struct{}

func (staticForecaster) Forecast(context.Context, weather.Coordinates) (weather.Forecast, error) {
	return weather.Forecast{"current": map[string]any{"temperature_2m": 17.0}}, nil
}

func weatherTool(t *testing.T, g weather.Geocoder) tool.Definition {
	t.Helper()
	wt, err := weather.New(weather.WithGeocoder(g), weather.WithForecaster(staticForecaster{}))
	require.NoError(t, err)
	return wt.Definition()
}

func TestRun_WeatherToolRoundTrip(t *testing.T) {
	for _, stream := range []bool{true, false} {
		name := "once"
		if stream {
			name = "stream"
		}
		t.Run(name, func(t *testing.T) {
			geocoder := &staticGeocoder{}
			runner := &Runner{
				Model:  mock.ChatModel(),
				Tools:  []tool.Definition{weatherTool(t, geocoder)},
				Stream: stream,
			}
			hook := &recorder{}

			res, err := runner.Run(context.Background(), []provider.Message{
				provider.UserMessage("What's the weather in San Francisco?"),
			}, hook)
			require.NoError(t, err)

			assert.Equal(t, 2, res.Steps)
			assert.False(t, res.StepLimitReached)
			assert.Equal(t, 1, geocoder.calls)

			require.Len(t, res.Messages, 3)
			assert.True(t, res.Messages[0].HasToolCalls())
			assert.Equal(t, provider.RoleTool, res.Messages[1].Role)
			assert.Equal(t, weather.ToolName, res.Messages[1].ToolName)
			assert.Equal(t, res.Messages[0].ToolCalls[0].ID, res.Messages[1].ToolCallID)
			assert.JSONEq(t, `{"current":{"temperature_2m":17},"cityName":"San Francisco"}`, res.Messages[1].Content)

			assert.True(t, strings.HasPrefix(res.Text, "The weather tool returned: "))
			assert.Equal(t, res.Text, hook.text.String())
			require.Len(t, hook.calls, 1)
			assert.Equal(t, weather.ToolName, hook.calls[0].Name)
			assert.Equal(t, []string{res.Messages[1].Content}, hook.results)
		})
	}
}

func TestRun_Reasoning(t *testing.T) {
	for _, stream := range []bool{true, false} {
		hook := &recorder{}
		runner := &Runner{Model: mock.ReasoningModel(), Stream: stream}

		res, err := runner.Run(context.Background(), []provider.Message{provider.UserMessage("hello")}, hook)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Steps)
		assert.Equal(t, "Hi there!", res.Text)
		assert.NotEmpty(t, res.Reasoning)
		assert.Equal(t, res.Reasoning, hook.reasoning.String())
		assert.Equal(t, res.Text, hook.text.String())
	}
}

func TestRun_EventHook(t *testing.T) {
	hook := &eventRecorder{}
	runner := &Runner{Model: mock.ChatModel(), Stream: true}

	res, err := runner.Run(context.Background(), []provider.Message{provider.UserMessage("hello")}, hook)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", hook.text.String())

	require.GreaterOrEqual(t, len(hook.events), 3)
	assert.Equal(t, provider.DelimStart, hook.events[0].(provider.Delim).Delim)
	final, ok := hook.events[len(hook.events)-1].(provider.Response)
	require.True(t, ok)
	assert.Equal(t, res.RunID, final.RunID)
	assert.Equal(t, res.Text, final.Response.Content)
}

func TestRun_StepLimit(t *testing.T) {
	call := provider.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"text":"again"}`}
	model := mock.NewModel("looping", mock.New(func(provider.CompletionParams) provider.Message {
		return provider.Message{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{call}}
	}))
	echo := tool.Must(func(text string) string { return text }, tool.Name("echo"), tool.Parameters("text"))

	runner := &Runner{Model: model, Tools: []tool.Definition{echo}, MaxSteps: 3}
	res, err := runner.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, res.StepLimitReached)
	assert.Equal(t, 3, res.Steps)
	assert.Len(t, res.Messages, 6)
	assert.Equal(t, "again", res.Messages[5].Content)
	assert.Empty(t, res.Text)
}

func TestRun_DefaultStepLimit(t *testing.T) {
	var completions int
	model := mock.NewModel("looping", mock.New(func(provider.CompletionParams) provider.Message {
		completions++
		return provider.Message{ToolCalls: []provider.ToolCall{{ID: "c", Name: "noop"}}}
	}))
	noop := tool.Must(func() {}, tool.Name("noop"))

	res, err := (&Runner{Model: model, Tools: []tool.Definition{noop}}).Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, res.StepLimitReached)
	assert.Equal(t, DefaultMaxSteps, completions)
}

func TestRun_Errors(t *testing.T) {
	boom := errors.New("upstream failed")

	tests := []struct {
		name    string
		runner  *Runner
		wantErr error
	}{
		{
			name:   "no model",
			runner: &Runner{},
		},
		{
			name: "unknown tool",
			runner: &Runner{Model: mock.NewModel("m", mock.New(func(provider.CompletionParams) provider.Message {
				return provider.Message{ToolCalls: []provider.ToolCall{{ID: "c", Name: "launchRockets"}}}
			}))},
			wantErr: ErrUnknownTool,
		},
		{
			name: "invalid tool arguments",
			runner: &Runner{
				Model: mock.NewModel("m", mock.New(func(provider.CompletionParams) provider.Message {
					return provider.Message{ToolCalls: []provider.ToolCall{{
						ID: "c", Name: weather.ToolName, Arguments: `{"city":"Paris","latitude":1}`,
					}}}
				})),
				Tools: []tool.Definition{weatherTool(t, &staticGeocoder{})},
			},
			wantErr: weather.ErrInvalidInput,
		},
		{
			name: "provider error event",
			runner: &Runner{Model: mock.NewModel("m", provider.ProviderFunc(
				func(context.Context, provider.CompletionParams) (<-chan provider.StreamEvent, error) {
					ch := make(chan provider.StreamEvent, 3)
					ch <- provider.Delim{Delim: provider.DelimStart}
					ch <- provider.Error{Err: boom}
					ch <- provider.Response{Response: provider.AssistantMessage("ignored")}
					close(ch)
					return ch, nil
				}))},
			wantErr: boom,
		},
		{
			name: "provider refuses",
			runner: &Runner{Model: mock.NewModel("m", provider.ProviderFunc(
				func(context.Context, provider.CompletionParams) (<-chan provider.StreamEvent, error) {
					return nil, boom
				}))},
			wantErr: boom,
		},
		{
			name: "no response",
			runner: &Runner{Model: mock.NewModel("m", provider.ProviderFunc(
				func(context.Context, provider.CompletionParams) (<-chan provider.StreamEvent, error) {
					ch := make(chan provider.StreamEvent)
					close(ch)
					return ch, nil
				}))},
			wantErr: ErrNoResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.runner.Run(context.Background(), []provider.Message{provider.UserMessage("hi")}, nil)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRun_HistoryIsNotModified(t *testing.T) {
	history := make([]provider.Message, 1, 4)
	history[0] = provider.UserMessage("What's the weather?")

	runner := &Runner{Model: mock.ChatModel(), Tools: []tool.Definition{weatherTool(t, &staticGeocoder{})}}
	_, err := runner.Run(context.Background(), history, nil)
	require.NoError(t, err)
	assert.Equal(t, []provider.Message{provider.UserMessage("What's the weather?")}, history[:1])
	assert.Len(t, history, 1)
	assert.Equal(t, provider.Message{}, history[:2][1], "spare capacity is untouched")
}
