package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRules() []FieldRule {
	return []FieldRule{
		{Name: "einverstanden", Label: "Ich bin einverstanden", Required: true, Enum: []string{"Ja"}},
		{Name: "kanton", Label: "Kanton", Required: true, Enum: []string{"Zug", "Zürich"}},
		{Name: "email_gruender", Label: "E-Mail", Required: true, Email: true},
		{Name: "zweck", Label: "Zweck"},
	}
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor(createRules())

	assert.Equal(t, "object", schema.Type)
	assert.True(t, schema.AdditionalProperties)
	assert.Equal(t, []string{"einverstanden", "email_gruender", "kanton"}, schema.Required)
	require.Contains(t, schema.Properties, "zweck")
	assert.Nil(t, schema.Properties["zweck"].MinLength)
	require.NotNil(t, schema.Properties["kanton"].MinLength)
	assert.Equal(t, 1, *schema.Properties["kanton"].MinLength)
	assert.Equal(t, []string{"Zug", "Zürich"}, schema.Properties["kanton"].Enum)
	assert.Empty(t, schema.Properties["kanton"].Format)

	email := schema.Properties["email_gruender"]
	assert.Equal(t, "email", email.Format)
	require.NotNil(t, email.Pattern)
	assert.Equal(t, EmailPattern, *email.Pattern)
}

func TestValidateRecord(t *testing.T) {
	schema := SchemaFor(createRules())

	tests := []struct {
		name      string
		record    map[string]string
		valid     bool
		errFields []string
		code      string
	}{
		{
			name: "complete record with unknown keys",
			record: map[string]string{
				"einverstanden":  "Ja",
				"kanton":         "Zug",
				"email_gruender": "max@example.com",
				"vorname":        "Max",
			},
			valid: true,
		},
		{
			name: "missing canton",
			record: map[string]string{
				"einverstanden":  "Ja",
				"email_gruender": "max@example.com",
			},
			errFields: []string{"kanton"},
			code:      "REQUIRED_FIELD_MISSING",
		},
		{
			name: "empty email",
			record: map[string]string{
				"einverstanden":  "Ja",
				"kanton":         "Zürich",
				"email_gruender": "",
			},
			errFields: []string{"email_gruender"},
			code:      "MIN_LENGTH_VIOLATION",
		},
		{
			name: "unknown canton and refused consent",
			record: map[string]string{
				"einverstanden":  "Nein",
				"kanton":         "Bern",
				"email_gruender": "max@example.com",
			},
			errFields: []string{"einverstanden", "kanton"},
			code:      "INVALID_ENUM_VALUE",
		},
		{
			name: "malformed email",
			record: map[string]string{
				"einverstanden":  "Ja",
				"kanton":         "Zug",
				"email_gruender": "not-an-email",
			},
			errFields: []string{"email_gruender"},
			code:      "PATTERN_MISMATCH",
		},
		{
			name: "email without domain dot",
			record: map[string]string{
				"einverstanden":  "Ja",
				"kanton":         "Zug",
				"email_gruender": "max@localhost",
			},
			errFields: []string{"email_gruender"},
			code:      "PATTERN_MISMATCH",
		},
		{
			name: "email with display name",
			record: map[string]string{
				"einverstanden":  "Ja",
				"kanton":         "Zug",
				"email_gruender": "Max <max@example.com>",
			},
			errFields: []string{"email_gruender"},
			code:      "PATTERN_MISMATCH",
		},
		{
			name:      "nil record",
			record:    nil,
			errFields: []string{"einverstanden", "email_gruender", "kanton"},
			code:      "REQUIRED_FIELD_MISSING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateRecord(tt.record, schema)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.Empty(t, result.Errors)
				return
			}
			for _, f := range tt.errFields {
				assert.True(t, result.HasErrors(f), "expected error for %s, got %v", f, result.GetErrorMessages())
			}
			fields := map[string]bool{}
			var codes []string
			for _, e := range result.Errors {
				fields[e.Field] = true
				codes = append(codes, e.Code)
			}
			assert.Len(t, fields, len(tt.errFields))
			assert.Contains(t, codes, tt.code)
		})
	}
}
