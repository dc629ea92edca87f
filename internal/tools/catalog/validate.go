package catalog

import (
	"strings"

	errs "twincat-mcp/internal/shared/errors"
)

// Arguments are validated tool arguments with defaults applied.
type Arguments map[string]any

// String returns the trimmed string value of key, or "" when absent.
func (a Arguments) String(key string) string {
	if v, ok := a[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Bool returns the boolean value of key, or false when absent.
func (a Arguments) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// Validate checks args against the descriptor's schema. Required arguments
// are checked in declared order and the first missing one is reported.
// Unknown extra arguments are kept but otherwise ignored.
func (d ToolDescriptor) Validate(args map[string]any) (Arguments, error) {
	out := make(Arguments, len(args)+len(d.InputSchema.Properties))
	for k, v := range args {
		out[k] = v
	}

	for _, name := range d.InputSchema.Required {
		v, ok := out[name]
		if !ok || v == nil {
			return nil, &errs.ValidationError{Tool: d.Name, Property: name}
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return nil, &errs.ValidationError{Tool: d.Name, Property: name}
		}
	}

	for _, name := range d.InputSchema.PropertyNames() {
		prop := d.InputSchema.Properties[name]
		v, ok := out[name]
		if !ok || v == nil {
			if prop.Default != nil {
				out[name] = prop.Default
			} else {
				delete(out, name)
			}
			continue
		}
		coerced, err := coerce(prop.Type, v)
		if err != nil {
			return nil, &errs.ValidationError{Tool: d.Name, Property: name, Reason: err.Error()}
		}
		out[name] = coerced
	}
	return out, nil
}

type typeMismatch string

func (t typeMismatch) Error() string {
	return "must be a " + string(t)
}

// coerce checks v against a JSON Schema scalar type. Booleans additionally
// accept the strings "true" and "false", which some clients send.
func coerce(schemaType string, v any) (any, error) {
	switch schemaType {
	case "string":
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, typeMismatch("string")
	case "boolean":
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, typeMismatch("boolean")
	default:
		return v, nil
	}
}
