package slogx

import (
	"log/slog"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

const (
	// KeyComponent is the key for the component that emitted a log record.
	KeyComponent = "component"
	// KeyModelID is the key for a caller supplied model identifier.
	KeyModelID = "model_id"
)

// Component creates a slog.Attr naming the component that logs a record.
// Records usually carry it on every call:
//
//	slog.DebugContext(ctx, "resolved model", slogx.Component("router"))
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// ModelID creates a slog.Attr for a model identifier as it was requested,
// which is not necessarily the name of the backend model that serves it.
func ModelID(id string) slog.Attr {
	return slog.String(KeyModelID, id)
}

// Coordinates groups a latitude/longitude pair under a single "coordinates" key.
func Coordinates(latitude, longitude float64) slog.Attr {
	return slog.Group("coordinates",
		slog.Float64("latitude", latitude),
		slog.Float64("longitude", longitude),
	)
}
