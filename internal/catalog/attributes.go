package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVariant indicates a variant reference failing field validation.
	ErrInvalidVariant = errors.New("catalog: invalid variant reference")
	// ErrUnknownAttribute indicates an attribute key outside the schema.
	ErrUnknownAttribute = errors.New("catalog: unknown attribute")
	// ErrInvalidAttributeValue indicates a value outside the allowed set.
	ErrInvalidAttributeValue = errors.New("catalog: invalid attribute value")
)

const attributeValueMaxLen = 64

// AttributeDef describes one allowed variant attribute. An empty Values slice
// means free-form text up to attributeValueMaxLen.
type AttributeDef struct {
	Name   string
	Values []string
}

// Schema is the known attribute set variants are validated against.
type Schema map[string]AttributeDef

// DefaultSchema covers the attribute axes the storefront sells on.
func DefaultSchema() Schema {
	defs := []AttributeDef{
		{Name: "size", Values: []string{"XS", "S", "M", "L", "XL", "XXL"}},
		{Name: "color"},
		{Name: "material"},
		{Name: "style"},
	}
	schema := make(Schema, len(defs))
	for _, def := range defs {
		schema[def.Name] = def
	}
	return schema
}

// Validate checks an attribute map against the schema.
func (s Schema) Validate(attrs map[string]string) error {
	for key, value := range attrs {
		def, ok := s[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAttribute, key)
		}
		if value == "" || len(value) > attributeValueMaxLen {
			return fmt.Errorf("%w: %s", ErrInvalidAttributeValue, key)
		}
		if len(def.Values) > 0 && !contains(def.Values, value) {
			return fmt.Errorf("%w: %s=%s", ErrInvalidAttributeValue, key, value)
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
