package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/casualjim/chatmodel/internal/config"
	"github.com/casualjim/chatmodel/provider/mock"
	"github.com/casualjim/chatmodel/tools/weather"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testEnv(t *testing.T, testMode bool) {
	t.Helper()
	color.NoColor = true
	for _, k := range []string{
		config.KeyAPIKey, config.KeyGeminiBaseURL, config.KeyGeocodingBaseURL, config.KeyForecastBaseURL,
		config.KeyLogLevel, config.KeyPlaywrightTestBaseURL, config.KeyPlaywright, config.KeyCIPlaywright,
	} {
		t.Setenv(k, "")
	}
	t.Setenv(config.KeyTestMode, fmt.Sprint(testMode))
}

func openMeteo(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/search":
			if r.URL.Query().Get("name") == "Atlantis" {
				fmt.Fprint(w, `{}`)
				return
			}
			fmt.Fprint(w, `{"results":[{"latitude":37.77,"longitude":-122.42}]}`)
		case "/v1/forecast":
			fmt.Fprint(w, `{"current":{"temperature_2m":17.5}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Usage(t *testing.T) {
	testEnv(t, true)

	_, stderr, err := execute(t, "")
	assert.Error(t, err)
	assert.Contains(t, stderr, "usage: chatmodel")

	_, _, err = execute(t, "", "launch")
	assert.EqualError(t, err, `unknown command "launch"`)

	stdout, _, err := execute(t, "", "help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "weather")
}

func TestRun_Models(t *testing.T) {
	testEnv(t, true)

	stdout, _, err := execute(t, "", "models")
	require.NoError(t, err)
	assert.Contains(t, stdout, "* chat-model ")
	assert.Contains(t, stdout, "o1-mini (Reasoning)")
	assert.Contains(t, stdout, mock.ReasoningModelName)
	assert.NotContains(t, stdout, "title-model")

	stdout, _, err = execute(t, "", "models", "--all")
	require.NoError(t, err)
	assert.Contains(t, stdout, "title-model")
	assert.Contains(t, stdout, "(default)")
}

func TestRun_Weather(t *testing.T) {
	testEnv(t, true)
	api := openMeteo(t)

	stdout, _, err := execute(t, "", "weather", "--city", "San Francisco",
		"--geocoding-base-url", api, "--forecast-base-url", api)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"cityName": "San Francisco"`)
	assert.Contains(t, stdout, `"temperature_2m": 17.5`)

	stdout, _, err = execute(t, "", "weather", "--latitude", "37.77", "--longitude", "-122.42",
		"--geocoding-base-url", api, "--forecast-base-url", api)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "cityName")

	stdout, stderr, err := execute(t, "", "weather", "--city", "Atlantis",
		"--geocoding-base-url", api, "--forecast-base-url", api)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"error"`)
	assert.Contains(t, stderr, `Could not find coordinates for "Atlantis"`)

	_, _, err = execute(t, "", "weather", "--city", "Paris", "--latitude", "1")
	assert.ErrorIs(t, err, weather.ErrInvalidInput)
}

func TestRun_Chat(t *testing.T) {
	testEnv(t, true)
	api := openMeteo(t)

	stdout, _, err := execute(t, "", "chat",
		"--geocoding-base-url", api, "--forecast-base-url", api,
		"What's", "the", "weather", "in", "SF?")
	require.NoError(t, err)
	assert.Contains(t, stdout, `getWeather{"city":"San Francisco"}`)
	assert.Contains(t, stdout, "The weather tool returned:")
	assert.Contains(t, stdout, "cityName")
}

func TestRun_ChatReasoning(t *testing.T) {
	testEnv(t, true)

	stdout, _, err := execute(t, "", "chat", "--model", "chat-model-reasoning", "--no-stream", "hello")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Thinking: ")
	assert.Contains(t, stdout, "Assistant: Hi there!")
}

func TestRun_ChatEvents(t *testing.T) {
	testEnv(t, true)

	stdout, _, err := execute(t, "", "chat", "--events", "hello")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.GreaterOrEqual(t, len(lines), 4)

	var text strings.Builder
	for _, line := range lines {
		require.True(t, gjson.Valid(line), line)
		if gjson.Get(line, "type").String() == "chunk" {
			text.WriteString(gjson.Get(line, "chunk.content").String())
		}
	}
	assert.Equal(t, "start", gjson.Get(lines[0], "delim").String())
	last := lines[len(lines)-1]
	assert.Equal(t, "response", gjson.Get(last, "type").String())
	assert.Equal(t, "Hello, world!", gjson.Get(last, "response.content").String())
	assert.Equal(t, "Hello, world!", text.String())
	assert.NotContains(t, stdout, "Assistant:")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "short", limit: 10, want: "short"},
		{in: "exactly", limit: 7, want: "exactly"},
		{in: "abcdef", limit: 3, want: "abc..."},
		{in: `{"cityName":"Zürich"}`, limit: 15, want: `{"cityName":"Zü...`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := truncate(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestRun_ChatREPL(t *testing.T) {
	testEnv(t, true)

	stdout, _, err := execute(t, "hello\n\nhi again\nexit\nnever read\n", "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, "Hello, world!"))
}

func TestRun_ChatRequiresAPIKey(t *testing.T) {
	testEnv(t, false)

	_, _, err := execute(t, "", "chat", "hello")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}
