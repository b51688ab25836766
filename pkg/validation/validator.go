// Package validation checks candidate records against declared object
// schemas: required fields, primitive types, string formats and length,
// numeric bounds, and enum membership.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/apimocker/apimocker/pkg/openapi"
)

// FieldError is one field-scoped validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`

	// missing marks a required-field error, so partial validation can
	// discard those without inspecting the message text.
	missing bool
}

// integerTolerance allows floating forms of whole numbers to pass the
// integer type check.
const integerTolerance = 1e-4

// Validate checks a record against an object schema and returns every
// field error found. Non-object schemas always pass. Unknown fields are
// ignored. Validation never fails hard; callers decide how to respond.
func Validate(data map[string]any, schema *openapi.Schema) []FieldError {
	if schema == nil || schema.Type != "object" {
		return nil
	}

	var errs []FieldError

	for _, required := range schema.Required {
		if v, ok := data[required]; !ok || v == nil {
			errs = append(errs, FieldError{
				Field:   required,
				Message: fmt.Sprintf("Field '%s' is required", required),
				missing: true,
			})
		}
	}

	for field, value := range data {
		propSchema, ok := schema.Properties[field]
		if !ok {
			continue
		}
		errs = append(errs, validateField(field, value, propSchema)...)
	}

	return errs
}

// ValidatePartial validates for partial-update semantics: only errors on
// fields actually present in the body are retained, and required-field
// errors are discarded.
func ValidatePartial(data map[string]any, schema *openapi.Schema) []FieldError {
	var kept []FieldError
	for _, e := range Validate(data, schema) {
		if _, present := data[e.Field]; present && !e.missing {
			kept = append(kept, e)
		}
	}
	return kept
}

func validateField(field string, value any, schema *openapi.Schema) []FieldError {
	if value == nil || schema == nil {
		return nil
	}

	var errs []FieldError

	if err := checkType(field, value, schema.Type); err != nil {
		// Constraint checks are meaningless once the type is wrong.
		return []FieldError{*err}
	}

	if s, ok := value.(string); ok {
		if schema.Format != "" && !ValidFormat(schema.Format, s) {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("Field '%s' must be a valid %s", field, schema.Format),
			})
		}
		if schema.MinLength != nil && len(s) < *schema.MinLength {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("Field '%s' must be at least %d characters", field, *schema.MinLength),
			})
		}
		if schema.MaxLength != nil && len(s) > *schema.MaxLength {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("Field '%s' must be at most %d characters", field, *schema.MaxLength),
			})
		}
	}

	if n, ok := numericValue(value); ok {
		if schema.Minimum != nil && n < *schema.Minimum {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("Field '%s' must be at least %v", field, *schema.Minimum),
			})
		}
		if schema.Maximum != nil && n > *schema.Maximum {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("Field '%s' must be at most %v", field, *schema.Maximum),
			})
		}
	}

	if len(schema.Enum) > 0 {
		if err := checkEnum(field, value, schema.Enum); err != nil {
			errs = append(errs, *err)
		}
	}

	return errs
}

func checkType(field string, value any, schemaType string) *FieldError {
	if schemaType == "" {
		return nil
	}

	valid := true
	switch schemaType {
	case "string":
		_, valid = value.(string)
	case "integer":
		valid = isInteger(value)
	case "number":
		_, valid = numericValue(value)
	case "boolean":
		_, valid = value.(bool)
	case "array":
		_, valid = value.([]any)
	case "object":
		_, valid = value.(map[string]any)
	}

	if !valid {
		return &FieldError{
			Field:   field,
			Message: fmt.Sprintf("Field '%s' must be of type '%s'", field, schemaType),
		}
	}
	return nil
}

// isInteger accepts integral kinds plus floating forms that are whole
// numbers within a small tolerance.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int64:
		return true
	case float64:
		return math.Abs(v-math.Trunc(v)) < integerTolerance
	default:
		return false
	}
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// checkEnum compares declared enum values and the candidate by string form.
func checkEnum(field string, value any, enum []any) *FieldError {
	want := stringForm(value)
	allowed := make([]string, len(enum))
	for i, e := range enum {
		allowed[i] = stringForm(e)
		if allowed[i] == want {
			return nil
		}
	}
	return &FieldError{
		Field:   field,
		Message: fmt.Sprintf("Field '%s' must be one of: %s", field, strings.Join(allowed, ", ")),
	}
}

func stringForm(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
