package provider

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Event type tags used in the JSON encoding.
const (
	typeDelim    = "delim"
	typeChunk    = "chunk"
	typeResponse = "response"
	typeError    = "error"
)

const (
	DelimStart = "start"
	DelimEnd   = "end"
	DelimEmpty = "empty"
)

// StreamEvent is the closed set of values a Provider emits on its channel:
// Delim, Chunk, Response and Error.
type StreamEvent interface {
	streamEvent()
}

// Delim marks a boundary of a streamed completion.
type Delim struct {
	RunID  uuid.UUID `json:"run_id"`
	TurnID uuid.UUID `json:"turn_id"`
	Delim  string    `json:"delim"`
}

func (Delim) streamEvent() {}

// Chunk carries an incremental delta of the assistant message.
type Chunk struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Chunk     Message         `json:"chunk"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Chunk) streamEvent() {}

// Response carries the complete assistant message of a completion.
// Streaming providers emit it after the last chunk.
type Response struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Response  Message         `json:"response"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Response) streamEvent() {}

// Error reports a failure of the completion. It is always the last event on the channel.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("completion %s failed: %v", e.TurnID, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// header holds the fields every encoded event carries besides its payload.
type header struct {
	kind      string
	runID     uuid.UUID
	turnID    uuid.UUID
	timestamp strfmt.DateTime
	meta      gjson.Result
}

// encode writes the header and the payload under field. A nil payload is omitted.
func (h header) encode(field string, payload any) ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, value)
		}
	}

	set("type", h.kind)
	set("run_id", h.runID.String())
	set("turn_id", h.turnID.String())
	if err == nil && payload != nil {
		raw, merr := json.Marshal(payload)
		if merr != nil {
			return nil, fmt.Errorf("encode %s %s: %w", h.kind, field, merr)
		}
		doc, err = sjson.SetRawBytes(doc, field, raw)
	}
	if !h.timestamp.IsZero() {
		set("timestamp", h.timestamp.String())
	}
	if err == nil && h.meta.Exists() {
		doc, err = sjson.SetRawBytes(doc, "meta", []byte(h.meta.Raw))
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// decode checks the type tag, fills the header and returns the payload found
// under field, which must be present.
func decode(data []byte, kind, field string, h *header) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json: %s", data)
	}
	doc := gjson.ParseBytes(data)

	if doc.Get("type").String() != kind {
		return gjson.Result{}, fmt.Errorf("missing or invalid type, expected '%s'", kind)
	}
	h.kind = kind

	for _, id := range []struct {
		name string
		dst  *uuid.UUID
	}{{"run_id", &h.runID}, {"turn_id", &h.turnID}} {
		v := doc.Get(id.name)
		if !v.Exists() {
			return gjson.Result{}, fmt.Errorf("missing required field '%s'", id.name)
		}
		if err := id.dst.UnmarshalText([]byte(v.String())); err != nil {
			return gjson.Result{}, fmt.Errorf("invalid %s: %w", id.name, err)
		}
	}

	if ts := doc.Get("timestamp"); ts.Exists() {
		if err := h.timestamp.UnmarshalText([]byte(ts.String())); err != nil {
			return gjson.Result{}, fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	if m := doc.Get("meta"); m.Exists() {
		h.meta = m
	}

	payload := doc.Get(field)
	if !payload.Exists() {
		return gjson.Result{}, fmt.Errorf("missing required field '%s'", field)
	}
	return payload, nil
}

func (d Delim) MarshalJSON() ([]byte, error) {
	return header{kind: typeDelim, runID: d.RunID, turnID: d.TurnID}.encode("delim", d.Delim)
}

func (d *Delim) UnmarshalJSON(data []byte) error {
	var h header
	v, err := decode(data, typeDelim, "delim", &h)
	if err != nil {
		return err
	}
	*d = Delim{RunID: h.runID, TurnID: h.turnID, Delim: v.String()}
	return nil
}

func (c Chunk) MarshalJSON() ([]byte, error) {
	return header{typeChunk, c.RunID, c.TurnID, c.Timestamp, c.Meta}.encode("chunk", c.Chunk)
}

func (c *Chunk) UnmarshalJSON(data []byte) error {
	var h header
	v, err := decode(data, typeChunk, "chunk", &h)
	if err != nil {
		return err
	}
	var msg Message
	if err := json.Unmarshal([]byte(v.Raw), &msg); err != nil {
		return fmt.Errorf("invalid chunk: %w", err)
	}
	*c = Chunk{RunID: h.runID, TurnID: h.turnID, Chunk: msg, Timestamp: h.timestamp, Meta: h.meta}
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	return header{typeResponse, r.RunID, r.TurnID, r.Timestamp, r.Meta}.encode("response", r.Response)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var h header
	v, err := decode(data, typeResponse, "response", &h)
	if err != nil {
		return err
	}
	var msg Message
	if err := json.Unmarshal([]byte(v.Raw), &msg); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	*r = Response{RunID: h.runID, TurnID: h.turnID, Response: msg, Timestamp: h.timestamp, Meta: h.meta}
	return nil
}

func (e Error) MarshalJSON() ([]byte, error) {
	var msg any
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return header{typeError, e.RunID, e.TurnID, e.Timestamp, e.Meta}.encode("error", msg)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var h header
	v, err := decode(data, typeError, "error", &h)
	if err != nil {
		return err
	}
	*e = Error{RunID: h.runID, TurnID: h.turnID, Err: errors.New(v.String()), Timestamp: h.timestamp, Meta: h.meta}
	return nil
}
