// Command chatmodel lists the chat model catalog, resolves models through the
// router and runs the weather tool, directly or through a chat with a model.
//
//	chatmodel models
//	chatmodel weather --city London
//	chatmodel weather --latitude 48.85 --longitude 2.35
//	chatmodel chat --model chat-model-reasoning "What's the weather in Paris?"
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	// Load GOOGLE_GENERATIVE_AI_API_KEY and friends from .env
	_ "github.com/joho/godotenv/autoload"

	"github.com/casualjim/chatmodel/internal/config"
	"github.com/casualjim/chatmodel/pkg/slogx"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var log zerolog.Logger

func setupLogging(w io.Writer, level slog.Level) {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("chatmodel failed", slogx.Error(err))
		os.Exit(1)
	}
}

const usage = `usage: chatmodel <command> [flags]

commands:
  models    list the selectable chat models and the backend serving each
  weather   run the weather tool for a city or coordinates
  chat      send a prompt to a model, with the weather tool available
`

type command func(ctx context.Context, env *environment, args []string) error

var commands = map[string]command{
	"models":  runModels,
	"weather": runWeather,
	"chat":    runChat,
}

// environment is what every command gets: its flags, the loaded
// configuration and the standard streams.
type environment struct {
	flags  *pflag.FlagSet
	viper  *viper.Viper
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// load parses args into the command's flag set and reads the configuration.
func (e *environment) load(args []string) error {
	if err := e.flags.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(e.viper)
	if err != nil {
		return err
	}
	e.cfg = cfg
	setupLogging(e.stderr, cfg.Level())
	return nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	setupLogging(stderr, slog.LevelInfo)

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}
	name := args[0]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}

	env := &environment{
		flags:  pflag.NewFlagSet(name, pflag.ContinueOnError),
		viper:  config.New(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	env.flags.SetOutput(stderr)
	if err := config.BindFlags(env.viper, env.flags); err != nil {
		return err
	}
	return cmd(ctx, env, args[1:])
}
