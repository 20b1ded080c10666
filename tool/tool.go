package tool

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrInvalidArguments is returned by Call when the arguments supplied by the
// model cannot be decoded or fail validation. The function is not invoked.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Validator is implemented by struct inputs that check their own invariants.
// Call runs Validate after decoding and before invoking the tool function.
type Validator interface {
	Validate() error
}

// Definition represents a function the model may call.
// It includes the function's name, description, parameter names and the function itself.
//
// The function may accept a context.Context anywhere in its signature. When its
// only other parameter is a struct, that struct is the tool input: its JSON schema
// is the tool schema and the model arguments are decoded into it. Otherwise each
// parameter becomes a property named after Parameters (param0, param1, ...).
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]string
	Function    any
}

var functionReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

var inputReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
	Anonymous:                 true,
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	name := td.Name
	if name == "" {
		name = functionName(td.Function)
	}
	return name, parametersSchema(td)
}

func parametersSchema(f Definition) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
	if !isFunction(f.Function) {
		return schema
	}

	typ := reflect.TypeOf(f.Function)
	if st, _, ok := structInput(typ); ok {
		s := inputReflector.ReflectFromType(st)
		s.Version = ""
		return s
	}

	var required []string
	for pos, i := range inputParams(typ) {
		paramName := parameterName(f.Parameters, pos)
		propSchema := functionReflector.ReflectFromType(typ.In(i))
		propSchema.Version = ""
		schema.Properties.Set(paramName, propSchema)
		required = append(required, paramName)
	}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// Call decodes the JSON object produced by the model into the function's
// parameters, invokes the function and renders its result as a string for the
// tool response message. An error returned by the function is returned as is.
func (td Definition) Call(ctx context.Context, arguments string) (string, error) {
	if !isFunction(td.Function) {
		return "", fmt.Errorf("tool %s has no function", td.Name)
	}

	val := reflect.ValueOf(td.Function)
	typ := val.Type()
	callArgs := make([]reflect.Value, typ.NumIn())

	if st, idx, ok := structInput(typ); ok {
		in := reflect.New(st)
		if strings.TrimSpace(arguments) != "" {
			if err := json.Unmarshal([]byte(arguments), in.Interface()); err != nil {
				return "", fmt.Errorf("%w: %w", ErrInvalidArguments, err)
			}
		}
		if v, ok := in.Interface().(Validator); ok {
			if err := v.Validate(); err != nil {
				return "", fmt.Errorf("%w: %w", ErrInvalidArguments, err)
			}
		}
		callArgs[idx] = in.Elem()
	} else {
		args := gjson.Parse(arguments)
		for pos, i := range inputParams(typ) {
			raw := args.Get(parameterName(td.Parameters, pos))
			if !raw.Exists() {
				continue
			}
			arg := reflect.New(typ.In(i))
			if err := json.Unmarshal([]byte(raw.Raw), arg.Interface()); err != nil {
				return "", fmt.Errorf("%w: %s: %w", ErrInvalidArguments, parameterName(td.Parameters, pos), err)
			}
			callArgs[i] = arg.Elem()
		}
	}

	for i := range callArgs {
		switch {
		case typ.In(i) == contextType:
			callArgs[i] = reflect.ValueOf(&ctx).Elem()
		case !callArgs[i].IsValid():
			callArgs[i] = reflect.Zero(typ.In(i))
		}
	}

	return formatResults(val.Call(callArgs))
}

func formatResults(results []reflect.Value) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	last := results[len(results)-1]
	if last.Type() == errorType {
		if !last.IsNil() {
			return "", last.Interface().(error)
		}
		results = results[:len(results)-1]
	}
	if len(results) == 0 {
		return "", nil
	}

	res := results[0]
	switch res.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
		if res.IsNil() {
			return "", nil
		}
	}

	switch v := res.Interface().(type) {
	case string:
		return v, nil
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return "", fmt.Errorf("failed to marshal tool result: %w", err)
		}
		return string(b), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal tool result: %w", err)
		}
		return string(b), nil
	}
}

// inputParams returns the indices of the parameters the model has to supply.
func inputParams(typ reflect.Type) []int {
	var idx []int
	for i := 0; i < typ.NumIn(); i++ {
		if typ.In(i) == contextType {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func structInput(typ reflect.Type) (reflect.Type, int, bool) {
	params := inputParams(typ)
	if len(params) != 1 {
		return nil, 0, false
	}
	st := typ.In(params[0])
	if st.Kind() != reflect.Struct {
		return nil, 0, false
	}
	return st, params[0], true
}

func parameterName(parameters map[string]string, pos int) string {
	key := fmt.Sprintf("param%d", pos)
	if p, ok := parameters[key]; ok && p != "" {
		return p
	}
	return key
}

func isFunction(fn any) bool {
	return fn != nil && reflect.TypeOf(fn).Kind() == reflect.Func
}

func functionName(fn any) string {
	if !isFunction(fn) {
		return ""
	}
	val := reflect.ValueOf(fn)
	if typ := val.Type(); typ.Name() != "" {
		return typ.String()
	}
	f := runtime.FuncForPC(val.Pointer())
	if f == nil {
		return val.Type().String()
	}
	name := f.Name()
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		name = name[lastDot+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// Option is a type alias for a function that modifies
// the configuration options of a tool definition.
type Option = opts.Option[Definition]

// Must wraps New and panics when the definition cannot be built.
func Must(f any, options ...Option) Definition {
	def, err := New(f, options...)
	if err != nil {
		panic(err)
	}
	return def
}

// New creates a Definition from the provided function and options.
// The name defaults to the function's name.
func New(f any, options ...Option) (Definition, error) {
	if !isFunction(f) {
		return Definition{}, fmt.Errorf("provided value is not a function")
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = functionName(f)
	}

	def.Function = f
	return def, nil
}

// Name sets the name the model uses to call the tool.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the human readable description sent to the model.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the positional parameters of the function, in order.
// Context parameters are not counted.
func Parameters(parameters ...string) opts.Option[Definition] {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
