/*
Package tool describes functions a model may call mid-conversation and invokes
them with the arguments the model produces.

A Definition carries a name, a description and a Go function. The JSON schema
sent to the model is derived from the function signature by reflection:

  - context.Context parameters are never part of the schema; Call injects the
    caller's context.
  - A function whose only remaining parameter is a struct takes that struct as
    its input object. The struct's schema (including any JSONSchemaExtend
    customisation) is the tool schema and the model's arguments are decoded
    into it. When the struct implements Validator it is validated before the
    function runs, so malformed input never reaches the function.
  - Any other function exposes one property per parameter, named by the
    Parameters option.

# Usage

	type cityInput struct {
		City string `json:"city"`
	}

	lookup := tool.Must(func(ctx context.Context, in cityInput) (string, error) {
		return lookupTimezone(ctx, in.City)
	},
		tool.Name("timezone"),
		tool.Description("Returns the IANA timezone of a city"),
	)

	out, err := lookup.Call(ctx, `{"city":"London"}`)

Call renders the function's first result for the tool response message:
strings are passed through, encoding.TextMarshaler values use their text form
and everything else is marshalled as JSON. A non-nil error result is returned
unchanged.
*/
package tool
