package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slighter12/rootstock-mcp-go/mcp"
)

type FieldType string

const (
	FieldString      FieldType = "string"
	FieldBoolean     FieldType = "boolean"
	FieldStringArray FieldType = "array"
)

// Field is one named argument of a tool.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
}

// Schema is the structural contract of a tool's arguments.
type Schema struct {
	Title  string
	Fields []Field
}

// Validate rejects malformed schemas: empty or duplicate field names and
// unsupported field types.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return errors.New("schema field name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate schema field %q", name)
		}
		seen[name] = struct{}{}
		switch field.Type {
		case FieldString, FieldBoolean, FieldStringArray:
		default:
			return fmt.Errorf("schema field %q has unsupported type %q", name, field.Type)
		}
	}
	return nil
}

// InputSchema renders the schema as a JSON Schema object.
func (s Schema) InputSchema() mcp.InputSchema {
	properties := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		property := map[string]any{
			"type":        string(field.Type),
			"description": field.Description,
		}
		if field.Type == FieldStringArray {
			property["items"] = map[string]any{"type": "string"}
		}
		properties[field.Name] = property
		if field.Required {
			required = append(required, field.Name)
		}
	}
	return mcp.InputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
		Title:      s.Title,
	}
}

// Check validates args structurally. A required field that is absent or null
// fails with missing_field; a present field of the wrong JSON type fails with
// type_mismatch. Fields not declared by the schema are ignored.
func (s Schema) Check(args map[string]any) error {
	for _, field := range s.Fields {
		value, ok := args[field.Name]
		if !ok || value == nil {
			if field.Required {
				return MissingField(field.Name)
			}
			continue
		}
		if !matchesType(field.Type, value) {
			return TypeMismatch(field.Name, field.Type)
		}
	}
	return nil
}

// Declared returns the subset of args named by the schema. Keys are matched
// exactly, so a differently cased duplicate of a declared field is dropped.
func (s Schema) Declared(args map[string]any) map[string]any {
	declared := make(map[string]any, len(s.Fields))
	for _, field := range s.Fields {
		if value, ok := args[field.Name]; ok {
			declared[field.Name] = value
		}
	}
	return declared
}

func matchesType(fieldType FieldType, value any) bool {
	switch fieldType {
	case FieldString:
		_, ok := value.(string)
		return ok
	case FieldBoolean:
		_, ok := value.(bool)
		return ok
	case FieldStringArray:
		switch items := value.(type) {
		case []string:
			return true
		case []any:
			for _, item := range items {
				if _, ok := item.(string); !ok {
					return false
				}
			}
			return true
		}
	}
	return false
}
