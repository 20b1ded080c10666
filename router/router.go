// Package router maps the model identifiers used by callers onto shared model
// handles. The mapping is total: identifiers it does not know resolve to the
// default chat model.
package router

import (
	"fmt"
	"log/slog"

	"github.com/casualjim/chatmodel/api"
	"github.com/casualjim/chatmodel/internal/config"
	"github.com/casualjim/chatmodel/internal/registry"
	"github.com/casualjim/chatmodel/models"
	"github.com/casualjim/chatmodel/pkg/slogx"
	"github.com/casualjim/chatmodel/provider/middleware"
	"github.com/casualjim/chatmodel/provider/mock"
	"github.com/casualjim/chatmodel/provider/openai"
	"github.com/fogfish/opts"
	"github.com/openai/openai-go/option"
)

// Resolver returns the model handle for an identifier.
type Resolver interface {
	Resolve(id string) api.Model
}

// Class is a group of identifiers served by the same handle.
type Class string

const (
	ClassChat      Class = "chat"
	ClassReasoning Class = "reasoning"
	ClassTitle     Class = "title"
)

// DefaultClass serves every identifier that is not listed in the routes.
const DefaultClass = ClassChat

// ReasoningTag is the tag the reasoning class extracts from generated text.
const ReasoningTag = "think"

var routes = []struct {
	class Class
	ids   []string
}{
	{ClassChat, []string{models.ChatModelID, models.ChatModelGeminiFlashID, models.ArtifactModelID}},
	{ClassReasoning, []string{models.ChatModelReasoningID}},
	{ClassTitle, []string{models.TitleModelID, models.ChatModelGeminiFlashLiteID}},
}

// LiveModels are the backend handles used outside of test mode.
type LiveModels struct {
	Flash     api.Model
	FlashLite api.Model
}

// LiveFactory builds the live backend handles from the configuration.
type LiveFactory func(config.Config) LiveModels

// GeminiModels is the default LiveFactory. It points both handles at the
// configured OpenAI compatible Gemini endpoint.
func GeminiModels(cfg config.Config) LiveModels {
	baseURL := cfg.GeminiBaseURL
	if baseURL == "" {
		baseURL = openai.GeminiBaseURL
	}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	}
	return LiveModels{
		Flash:     openai.GeminiFlash(reqOpts...),
		FlashLite: openai.GeminiFlashLite(reqOpts...),
	}
}

type settings struct {
	live LiveFactory
}

type Option = opts.Option[settings]

// WithLiveModels replaces the factory for the live handles. It is never
// called in test mode.
func WithLiveModels(factory LiveFactory) Option {
	return opts.Type[settings](func(o *settings) error {
		if factory == nil {
			return fmt.Errorf("live model factory must not be nil")
		}
		o.live = factory
		return nil
	})
}

var _ Resolver = (*Router)(nil)

// Router is the routing table. It is built once and is safe for concurrent use.
type Router struct {
	testMode bool
	classes  map[Class]api.Model
	handles  *registry.Table[api.Model]
}

// New builds the routing table. The choice between live and mock handles is
// made here, once: in test mode no live handle is created.
func New(cfg config.Config, options ...Option) (*Router, error) {
	o := settings{live: GeminiModels}
	if err := opts.Apply(&o, options); err != nil {
		return nil, err
	}

	var classes map[Class]api.Model
	if cfg.TestMode {
		classes = map[Class]api.Model{
			ClassChat:      mock.ChatModel(),
			ClassReasoning: mock.ReasoningModel(),
			ClassTitle:     mock.ChatModel(),
		}
	} else {
		live := o.live(cfg)
		if live.Flash == nil || live.FlashLite == nil {
			return nil, fmt.Errorf("live model factory returned an incomplete set of models")
		}
		classes = map[Class]api.Model{
			ClassChat:      live.Flash,
			ClassReasoning: middleware.Wrap(live.Flash, middleware.ExtractReasoning(middleware.TagName(ReasoningTag))),
			ClassTitle:     live.FlashLite,
		}
	}

	handles := registry.New(classes[DefaultClass])
	for _, route := range routes {
		handles.Register(classes[route.class], route.ids...)
	}

	slog.Debug("model router ready",
		slogx.Component("router"),
		slog.Bool("test_mode", cfg.TestMode),
		slog.String("chat", classes[ClassChat].Name()),
		slog.String("reasoning", classes[ClassReasoning].Name()),
		slog.String("title", classes[ClassTitle].Name()),
	)

	return &Router{
		testMode: cfg.TestMode,
		classes:  classes,
		handles:  handles,
	}, nil
}

// Resolve returns the handle for id. It never fails and never creates a
// handle; the same identifier always yields the same handle.
func (r *Router) Resolve(id string) api.Model {
	if !r.handles.Has(id) {
		slog.Debug("unknown model identifier, using default", slogx.Component("router"), slogx.ModelID(id))
	}
	return r.handles.Lookup(id)
}

// Class returns the handle that serves class c, or nil for an unknown class.
func (r *Router) Class(c Class) api.Model {
	return r.classes[c]
}

// ClassOf returns the class that serves id.
func ClassOf(id string) Class {
	for _, route := range routes {
		for _, known := range route.ids {
			if known == id {
				return route.class
			}
		}
	}
	return DefaultClass
}

// Classes returns every class in routing order.
func Classes() []Class {
	result := make([]Class, len(routes))
	for i, route := range routes {
		result[i] = route.class
	}
	return result
}

// Identifiers returns the identifiers routed explicitly, sorted.
func (r *Router) Identifiers() []string {
	return r.handles.Names()
}

// TestMode reports whether the router serves the mock models.
func (r *Router) TestMode() bool {
	return r.testMode
}
