// Package catalog holds the static set of tools advertised over MCP.
package catalog

import (
	"fmt"
	"strings"

	errs "twincat-mcp/internal/shared/errors"
)

// ToolDescriptor describes one tool: its name, a human description and the
// JSON Schema of its arguments.
type ToolDescriptor struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	InputSchema InputSchema `json:"inputSchema" yaml:"inputSchema"`
}

// InputSchema is the JSON Schema object describing tool arguments.
type InputSchema struct {
	Type       string              `json:"type" yaml:"type"`
	Properties map[string]Property `json:"properties" yaml:"properties"`
	Required   []string            `json:"required,omitempty" yaml:"required,omitempty"`

	// order keeps the declaration order of Properties for display.
	order []string
}

// Property defines a single argument.
type Property struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// PropertyNames returns the argument names in declaration order.
func (s InputSchema) PropertyNames() []string {
	if len(s.order) == len(s.Properties) {
		return append([]string(nil), s.order...)
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	return names
}

// IsRequired reports whether name is listed as required.
func (s InputSchema) IsRequired(name string) bool {
	for _, req := range s.Required {
		if req == name {
			return true
		}
	}
	return false
}

// Catalog is an immutable, ordered tool registry.
type Catalog struct {
	tools  []ToolDescriptor
	byName map[string]int
}

// New builds a catalog, rejecting duplicate names and required arguments
// that are not declared as properties.
func New(tools ...ToolDescriptor) (*Catalog, error) {
	c := &Catalog{
		tools:  make([]ToolDescriptor, 0, len(tools)),
		byName: make(map[string]int, len(tools)),
	}
	for _, tool := range tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			return nil, fmt.Errorf("tool descriptor without a name")
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		if tool.InputSchema.Type != "object" {
			return nil, fmt.Errorf("tool %q: input schema type must be \"object\", got %q", name, tool.InputSchema.Type)
		}
		for _, req := range tool.InputSchema.Required {
			if _, ok := tool.InputSchema.Properties[req]; !ok {
				return nil, fmt.Errorf("tool %q: required argument %q is not declared", name, req)
			}
		}
		c.byName[name] = len(c.tools)
		c.tools = append(c.tools, tool)
	}
	return c, nil
}

// MustNew is New for static descriptor sets; it panics on an invalid set.
func MustNew(tools ...ToolDescriptor) *Catalog {
	c, err := New(tools...)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the descriptors in registration order.
func (c *Catalog) List() []ToolDescriptor {
	out := make([]ToolDescriptor, len(c.tools))
	copy(out, c.tools)
	return out
}

// Lookup finds a descriptor by name.
func (c *Catalog) Lookup(name string) (ToolDescriptor, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return c.tools[idx], true
}

// Validate checks args against the named tool's schema and returns a copy
// with defaults applied for absent optional arguments.
func (c *Catalog) Validate(name string, args map[string]any) (Arguments, error) {
	desc, ok := c.Lookup(name)
	if !ok {
		return nil, &errs.UnknownToolError{Name: name}
	}
	return desc.Validate(args)
}
