package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/casualjim/chatmodel/chat"
	"github.com/casualjim/chatmodel/models"
	"github.com/casualjim/chatmodel/provider"
	"github.com/casualjim/chatmodel/router"
	"github.com/casualjim/chatmodel/tool"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
)

const defaultInstructions = "You are a friendly assistant! Keep your responses concise and helpful."

func runChat(ctx context.Context, env *environment, args []string) error {
	modelID := env.flags.String("model", models.DefaultChatModel, "model identifier to resolve")
	noStream := env.flags.Bool("no-stream", false, "wait for the complete reply instead of streaming it")
	markdown := env.flags.Bool("markdown", false, "render replies as markdown once complete")
	maxSteps := env.flags.Int("max-steps", chat.DefaultMaxSteps, "maximum number of completions per prompt")
	instructions := env.flags.String("instructions", defaultInstructions, "system instructions")
	eventLog := env.flags.Bool("events", false, "print the provider events as JSON lines instead of text")
	if err := env.load(args); err != nil {
		return err
	}
	if err := env.cfg.Validate(); err != nil {
		return err
	}

	r, err := router.New(env.cfg)
	if err != nil {
		return err
	}
	wt, err := newWeatherTool(env.cfg)
	if err != nil {
		return err
	}

	runner := &chat.Runner{
		Model:        r.Resolve(*modelID),
		Tools:        []tool.Definition{wt.Definition()},
		Instructions: *instructions,
		MaxSteps:     *maxSteps,
		Stream:       !*noStream,
	}

	var glam *glamour.TermRenderer
	if *markdown {
		glam, err = glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			return err
		}
	}
	c := &conversation{runner: runner, out: env.stdout, glam: glam, events: *eventLog}

	if prompt := strings.Join(env.flags.Args(), " "); strings.TrimSpace(prompt) != "" {
		return c.send(ctx, prompt)
	}
	return c.repl(ctx, env.stdin)
}

type conversation struct {
	runner  *chat.Runner
	history []provider.Message
	out     io.Writer
	glam    *glamour.TermRenderer
	events  bool
}

func (c *conversation) send(ctx context.Context, prompt string) error {
	history := append(c.history, provider.UserMessage(prompt))

	console := &consoleHook{out: c.out, buffered: c.glam != nil}
	var (
		hook   chat.Hook = console
		events *eventHook
	)
	if c.events {
		events = &eventHook{out: c.out}
		hook = events
	}

	res, err := c.runner.Run(ctx, history, hook)
	if err != nil {
		return err
	}
	if events != nil && events.err != nil {
		return events.err
	}
	console.finish()
	c.history = append(history, res.Messages...)

	if c.glam != nil && !c.events && res.Text != "" {
		rendered, err := c.glam.Render(res.Text)
		if err != nil {
			return err
		}
		fmt.Fprint(c.out, rendered)
	}
	if res.StepLimitReached {
		fmt.Fprintln(c.out, color.RedString("stopped after %d steps", res.Steps))
	}
	return nil
}

func (c *conversation) repl(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(c.out, "%s: ", color.CyanString("User"))
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			return nil
		}
		if err := c.send(ctx, input); err != nil {
			return err
		}
	}
}

// consoleHook prints a run as it streams: reasoning dimmed, tool calls in
// yellow and the answer as plain text, unless it is buffered for rendering.
type consoleHook struct {
	out      io.Writer
	buffered bool

	reasoning bool
	text      bool
}

func (h *consoleHook) OnReasoning(_ context.Context, delta string) {
	if !h.reasoning {
		h.reasoning = true
		fmt.Fprint(h.out, color.MagentaString("Thinking")+": ")
	}
	fmt.Fprint(h.out, color.HiBlackString(delta))
}

func (h *consoleHook) OnText(_ context.Context, delta string) {
	if h.buffered {
		return
	}
	if h.reasoning {
		h.reasoning = false
		fmt.Fprintln(h.out)
	}
	if !h.text {
		h.text = true
		fmt.Fprint(h.out, color.MagentaString("Assistant")+": ")
	}
	fmt.Fprint(h.out, delta)
}

func (h *consoleHook) OnToolCall(_ context.Context, call provider.ToolCall) {
	h.finish()
	args := strings.ReplaceAll(call.Arguments, ": ", "=")
	fmt.Fprintf(h.out, "%s%s\n", color.YellowString(call.Name), args)
}

func (h *consoleHook) OnToolResult(_ context.Context, call provider.ToolCall, result string) {
	fmt.Fprintf(h.out, "%s %s\n", color.GreenString("%s ->", call.Name), truncate(result, 120))
}

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// finish ends the line of any reasoning or text in progress.
func (h *consoleHook) finish() {
	if h.reasoning || h.text {
		fmt.Fprintln(h.out)
	}
	h.reasoning, h.text = false, false
}

// eventHook writes every provider event as one JSON line.
type eventHook struct {
	chat.NopHook
	out io.Writer
	err error
}

func (h *eventHook) OnEvent(_ context.Context, event provider.StreamEvent) {
	if h.err != nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.err = fmt.Errorf("encode event: %w", err)
		return
	}
	_, h.err = fmt.Fprintf(h.out, "%s\n", data)
}
