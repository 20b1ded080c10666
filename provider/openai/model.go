package openai

import (
	"sync"

	"github.com/casualjim/chatmodel/api"
	"github.com/casualjim/chatmodel/provider"
	"github.com/openai/openai-go/option"
)

const (
	// GeminiBaseURL is Google's OpenAI-compatible chat completions endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	GeminiFlashModel     = "gemini-2.5-flash"
	GeminiFlashLiteModel = "gemini-2.5-flash-lite"
)

// GeminiFlash returns a handle for gemini-2.5-flash. The options should carry
// the API key and option.WithBaseURL(GeminiBaseURL) or an override.
func GeminiFlash(opts ...option.RequestOption) api.Model {
	return Model(GeminiFlashModel, opts...)
}

// GeminiFlashLite returns a handle for gemini-2.5-flash-lite.
func GeminiFlashLite(opts ...option.RequestOption) api.Model {
	return Model(GeminiFlashLiteModel, opts...)
}

// Model returns a handle for any model served over the chat completions API.
// The HTTP client is not created until the first call to Provider.
func Model(name string, opts ...option.RequestOption) api.Model {
	return &model{
		name: name,
		opts: opts,
	}
}

var _ api.Model = (*model)(nil)

type model struct {
	name string
	opts []option.RequestOption

	prov     provider.Provider
	provOnce sync.Once
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Provider() provider.Provider {
	m.provOnce.Do(func() {
		m.prov = New(m.opts...)
	})
	return m.prov
}
