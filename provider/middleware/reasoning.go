package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/casualjim/chatmodel/provider"
	"github.com/fogfish/opts"
)

// ReasoningOptions configures ExtractReasoning.
type ReasoningOptions struct {
	// TagName is the name of the tag that delimits reasoning, without brackets.
	TagName string
	// Separator joins reasoning segments, and the answer pieces around a removed segment.
	Separator string
	// StartWithReasoning treats the output as if it opened with the tag,
	// for models that omit the opening tag.
	StartWithReasoning bool
}

type ReasoningOption = opts.Option[ReasoningOptions]

// TagName sets the reasoning tag, "think" by default.
func TagName(name string) ReasoningOption {
	return opts.Type[ReasoningOptions](func(o *ReasoningOptions) error {
		if name == "" {
			return fmt.Errorf("reasoning tag name must not be empty")
		}
		o.TagName = name
		return nil
	})
}

// Separator sets the separator, "\n" by default.
func Separator(sep string) ReasoningOption {
	return opts.Type[ReasoningOptions](func(o *ReasoningOptions) error {
		o.Separator = sep
		return nil
	})
}

// StartWithReasoning makes the extractor start in reasoning mode.
func StartWithReasoning(v bool) ReasoningOption {
	return opts.Type[ReasoningOptions](func(o *ReasoningOptions) error {
		o.StartWithReasoning = v
		return nil
	})
}

// ExtractReasoning returns a middleware that moves <tag>...</tag> segments of the
// generated text out of Message.Content and into Message.Reasoning.
//
// Streamed chunks are split incrementally: text is held back only while it could
// be the beginning of the next tag. The final Response is rewritten from the
// complete text. Tool calls, delimiters and errors pass through unchanged.
//
// It panics when an option is invalid.
func ExtractReasoning(options ...ReasoningOption) Middleware {
	cfg := ReasoningOptions{TagName: "think", Separator: "\n"}
	if err := opts.Apply(&cfg, options); err != nil {
		panic(err)
	}

	ex := &reasoningExtractor{
		ReasoningOptions: cfg,
		openingTag:       "<" + cfg.TagName + ">",
		closingTag:       "</" + cfg.TagName + ">",
	}
	ex.pattern = regexp.MustCompile("(?s)" + regexp.QuoteMeta(ex.openingTag) + "(.*?)" + regexp.QuoteMeta(ex.closingTag))

	return func(next provider.Provider) provider.Provider {
		return provider.ProviderFunc(func(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
			upstream, err := next.ChatCompletion(ctx, params)
			if err != nil {
				return nil, err
			}

			events := make(chan provider.StreamEvent, 10)
			go func() {
				defer close(events)
				ex.transform(upstream, events)
			}()
			return events, nil
		})
	}
}

type reasoningExtractor struct {
	ReasoningOptions
	openingTag string
	closingTag string
	pattern    *regexp.Regexp
}

func (ex *reasoningExtractor) transform(upstream <-chan provider.StreamEvent, events chan<- provider.StreamEvent) {
	sp := ex.newSplitter()
	var last provider.Chunk

	flush := func() {
		for _, seg := range sp.flush() {
			events <- seg.apply(provider.Chunk{
				RunID:     last.RunID,
				TurnID:    last.TurnID,
				Chunk:     provider.Message{Role: provider.RoleAssistant},
				Timestamp: last.Timestamp,
			})
		}
	}

	for ev := range upstream {
		switch e := ev.(type) {
		case provider.Chunk:
			last = e
			content := e.Chunk.Content
			base := e
			base.Chunk.Content = ""

			segs := sp.push(content)
			if len(segs) == 0 {
				if content == "" || base.Chunk.Reasoning != "" || base.Chunk.HasToolCalls() {
					events <- base
				}
				continue
			}
			for i, seg := range segs {
				c := base
				if i > 0 {
					c.Chunk.Reasoning = ""
					c.Chunk.ToolCalls = nil
				}
				events <- seg.apply(c)
			}
		case provider.Delim:
			if e.Delim == provider.DelimEnd {
				flush()
			}
			events <- e
		case provider.Response:
			flush()
			answer, reasoning, ok := ex.split(e.Response.Content)
			if ok {
				e.Response.Content = answer
				e.Response.Reasoning = joinNonEmpty(ex.Separator, e.Response.Reasoning, reasoning)
			}
			events <- e
		default:
			events <- ev
		}
	}
	flush()
}

// split removes every reasoning segment from text. It reports false when the
// text holds no complete segment, in which case text is returned unchanged.
func (ex *reasoningExtractor) split(text string) (answer, reasoning string, ok bool) {
	if ex.StartWithReasoning {
		text = ex.openingTag + text
	}

	matches := ex.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		if ex.StartWithReasoning {
			text = strings.TrimPrefix(text, ex.openingTag)
		}
		return text, "", false
	}

	segments := make([]string, len(matches))
	for i, m := range matches {
		segments[i] = text[m[2]:m[3]]
	}

	answer = text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		before, after := answer[:m[0]], answer[m[1]:]
		sep := ""
		if before != "" && after != "" {
			sep = ex.Separator
		}
		answer = before + sep + after
	}
	return answer, strings.Join(segments, ex.Separator), true
}

func joinNonEmpty(sep string, parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, sep)
}

type segment struct {
	reasoning bool
	text      string
}

func (s segment) apply(c provider.Chunk) provider.Chunk {
	if s.reasoning {
		c.Chunk.Reasoning += s.text
	} else {
		c.Chunk.Content = s.text
	}
	return c
}

// splitter separates a stream of text deltas into answer and reasoning deltas.
// One instance serves exactly one completion.
type splitter struct {
	openingTag string
	closingTag string
	separator  string

	buffer         string
	reasoning      bool
	afterSwitch    bool
	firstText      bool
	firstReasoning bool
}

func (ex *reasoningExtractor) newSplitter() *splitter {
	return &splitter{
		openingTag:     ex.openingTag,
		closingTag:     ex.closingTag,
		separator:      ex.Separator,
		reasoning:      ex.StartWithReasoning,
		firstText:      true,
		firstReasoning: true,
	}
}

func (s *splitter) push(delta string) []segment {
	s.buffer += delta

	var segs []segment
	for {
		nextTag := s.openingTag
		if s.reasoning {
			nextTag = s.closingTag
		}

		start := potentialStartIndex(s.buffer, nextTag)
		if start < 0 {
			segs = s.publish(segs, s.buffer)
			s.buffer = ""
			return segs
		}

		segs = s.publish(segs, s.buffer[:start])
		if start+len(nextTag) > len(s.buffer) {
			// partial tag, wait for more text
			s.buffer = s.buffer[start:]
			return segs
		}

		s.buffer = s.buffer[start+len(nextTag):]
		s.reasoning = !s.reasoning
		s.afterSwitch = true
	}
}

// flush publishes text held back as a possible tag prefix.
func (s *splitter) flush() []segment {
	segs := s.publish(nil, s.buffer)
	s.buffer = ""
	return segs
}

func (s *splitter) publish(segs []segment, text string) []segment {
	if text == "" {
		return segs
	}

	prefix := ""
	if s.afterSwitch && ((s.reasoning && !s.firstReasoning) || (!s.reasoning && !s.firstText)) {
		prefix = s.separator
	}
	segs = append(segs, segment{reasoning: s.reasoning, text: prefix + text})

	s.afterSwitch = false
	if s.reasoning {
		s.firstReasoning = false
	} else {
		s.firstText = false
	}
	return segs
}

// potentialStartIndex returns the index of tag in text, or where a suffix of
// text that is a prefix of tag starts, or -1.
func potentialStartIndex(text, tag string) int {
	if tag == "" {
		return -1
	}
	if i := strings.Index(text, tag); i >= 0 {
		return i
	}
	for i := len(text) - 1; i >= 0; i-- {
		if strings.HasPrefix(tag, text[i:]) {
			return i
		}
	}
	return -1
}
