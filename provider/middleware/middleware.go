package middleware

import (
	"sync"

	"github.com/casualjim/chatmodel/api"
	"github.com/casualjim/chatmodel/provider"
)

// Middleware decorates a provider. The returned provider must honour the
// provider.Provider contract: it owns and closes the channel it returns.
type Middleware func(provider.Provider) provider.Provider

// Wrap returns a model handle that runs every completion through the given
// middlewares. The first middleware is the outermost one: it sees the events
// last, after all the others transformed them. The handle keeps the name of
// the wrapped model.
func Wrap(model api.Model, middlewares ...Middleware) api.Model {
	return &wrapped{
		base:        model,
		middlewares: middlewares,
	}
}

// Unwrap returns the model a handle created by Wrap decorates, or nil when
// the handle is not decorated.
func Unwrap(model api.Model) api.Model {
	if w, ok := model.(*wrapped); ok {
		return w.base
	}
	return nil
}

var _ api.Model = (*wrapped)(nil)

type wrapped struct {
	base        api.Model
	middlewares []Middleware

	prov     provider.Provider
	provOnce sync.Once
}

func (w *wrapped) Name() string {
	return w.base.Name()
}

func (w *wrapped) Provider() provider.Provider {
	w.provOnce.Do(func() {
		p := w.base.Provider()
		for i := len(w.middlewares) - 1; i >= 0; i-- {
			p = w.middlewares[i](p)
		}
		w.prov = p
	})
	return w.prov
}
