package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema defines the structure for submission schemas.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Format      string   `json:"format,omitempty"`
	Pattern     *string  `json:"pattern,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// FieldRule describes the constraints of one submitted key.
type FieldRule struct {
	Name     string
	Label    string
	Required bool
	Enum     []string
	Email    bool
}

// SchemaFor builds an object schema over string values. Required keys must
// be present and non-empty; enumerated keys must hold one of their values;
// email keys must hold an address matching EmailPattern.
// Keys without a rule are allowed and left untouched.
func SchemaFor(rules []FieldRule) JSONSchema {
	schema := JSONSchema{
		Type:                 "object",
		Properties:           make(map[string]Property, len(rules)),
		AdditionalProperties: true,
	}
	for _, rule := range rules {
		prop := Property{Type: "string", Description: rule.Label}
		if rule.Required {
			prop.MinLength = intPtr(1)
			schema.Required = append(schema.Required, rule.Name)
		}
		if len(rule.Enum) > 0 {
			prop.Enum = append([]string(nil), rule.Enum...)
		}
		if rule.Email {
			pattern := EmailPattern
			prop.Format = "email"
			prop.Pattern = &pattern
		}
		schema.Properties[rule.Name] = prop
	}
	sort.Strings(schema.Required)
	return schema
}

// ValidateRecord validates a flat string record against schema.
func ValidateRecord(record map[string]string, schema JSONSchema) (*ValidationResult, error) {
	if record == nil {
		record = map[string]string{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(record),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    codeOf(desc.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out, nil
}

func fieldOf(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	return desc.Field()
}

func codeOf(errType string) string {
	switch errType {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "string_gte":
		return "MIN_LENGTH_VIOLATION"
	case "string_lte":
		return "MAX_LENGTH_VIOLATION"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "pattern":
		return "PATTERN_MISMATCH"
	case "format":
		return "INVALID_FORMAT"
	default:
		return strings.ToUpper(errType)
	}
}

// GetErrorMessages returns a simple list of error messages.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for a specific field.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func intPtr(i int) *int {
	return &i
}
