package util

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidationError reports the first argument that does not match a tool's
// parameter schema.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var kindTypes = map[reflect.Kind]string{
	reflect.String:  "string",
	reflect.Bool:    "boolean",
	reflect.Float32: "number",
	reflect.Float64: "number",
	reflect.Slice:   "array",
	reflect.Array:   "array",
	reflect.Map:     "object",
	reflect.Struct:  "object",
}

// CreateSchema derives an object schema from the exported fields of an
// argument struct. Recognized tags:
//
//	json:"name,omitempty"   property name; omitempty or a pointer makes it optional
//	description:"..."       property description shown to the model
//	enum:"a|b|c"            allowed string values
//	minLength:"1"           minimum length of a string after trimming spaces
func CreateSchema(args any) map[string]any {
	t := reflect.TypeOf(args)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	properties := map[string]any{}
	schema := map[string]any{"type": "object", "properties": properties}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for f := range fields(t) {
		name, optional := jsonName(f)
		properties[name] = fieldSchema(f)
		if !optional && f.Type.Kind() != reflect.Pointer {
			required = append(required, name)
		}
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fields(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

func jsonName(f reflect.StructField) (string, bool) {
	name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		name = f.Name
	}
	return name, slices.Contains(strings.Split(opts, ","), "omitempty")
}

func fieldSchema(f reflect.StructField) map[string]any {
	s := map[string]any{"type": jsonType(f.Type)}
	if d := f.Tag.Get("description"); d != "" {
		s["description"] = d
	}
	if e := f.Tag.Get("enum"); e != "" {
		s["enum"] = strings.Split(e, "|")
	}
	if n, err := strconv.Atoi(f.Tag.Get("minLength")); err == nil && n > 0 {
		s["minLength"] = n
	}
	return s
}

func jsonType(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return jsonType(t.Elem())
	}
	if typ, ok := kindTypes[t.Kind()]; ok {
		return typ
	}
	if t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64 {
		return "integer"
	}
	return "string"
}

// ValidateParameters checks decoded arguments against a schema built by
// CreateSchema or decoded from JSON: required fields, primitive types, string
// enums and minimum string lengths. Unknown fields are allowed.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, name := range stringList(schema["required"]) {
		if _, ok := params[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range params {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		if msg := checkValue(value, prop); msg != "" {
			return &ValidationError{Field: name, Value: value, Message: msg}
		}
	}
	return nil
}

func checkValue(value any, prop map[string]any) string {
	want, _ := prop["type"].(string)
	if !isValidType(value, want) {
		return fmt.Sprintf("expected type %s, got %T", want, value)
	}
	sv, isString := value.(string)
	if !isString {
		return ""
	}
	if enum := stringList(prop["enum"]); len(enum) > 0 && !slices.Contains(enum, sv) {
		return fmt.Sprintf("must be one of %s", strings.Join(enum, ", "))
	}
	if n := intValue(prop["minLength"]); n > 0 && utf8.RuneCountInString(strings.TrimSpace(sv)) < n {
		return fmt.Sprintf("must have at least %d characters", n)
	}
	return ""
}

// stringList accepts []string (schemas built in Go) and []any (schemas
// decoded from JSON).
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// DecodeArguments unmarshals a JSON argument object into a map. An empty
// string decodes to an empty map.
func DecodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

func isValidType(value any, want string) bool {
	if value == nil {
		return true
	}
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return true
}
