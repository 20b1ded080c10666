package api

import "github.com/casualjim/chatmodel/provider"

// Model is a handle to an invocable backend model. Handles are built once and
// shared; decorated handles (see package middleware) satisfy the same interface.
type Model interface {
	// Name returns the backend model name, e.g. "gemini-2.5-flash".
	Name() string
	// Provider returns the provider that executes completions for this model.
	Provider() provider.Provider
}
