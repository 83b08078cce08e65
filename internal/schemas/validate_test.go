package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSchemaFiles_Compile(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			data, err := schemaFiles.ReadFile(name + suffix)
			require.NoError(t, err)

			var v map[string]any
			require.NoError(t, json.Unmarshal(data, &v), "schema file should be valid JSON")
			assert.Equal(t, "object", v["type"])

			_, err = load(name)
			assert.NoError(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		schema    string
		doc       any
		wantError bool
	}{
		{
			name:   "quality review with score",
			schema: "quality_feedback",
			doc:    map[string]any{"overall_score": 82.0, "issues_found": []any{}},
		},
		{
			name:      "quality review missing score",
			schema:    "quality_feedback",
			doc:       map[string]any{"recommendation": "ship it"},
			wantError: true,
		},
		{
			name:      "quality score out of range",
			schema:    "quality_feedback",
			doc:       map[string]any{"overall_score": 140.0},
			wantError: true,
		},
		{
			name:      "quoted score is a type mismatch",
			schema:    "quality_feedback",
			doc:       map[string]any{"overall_score": "82"},
			wantError: true,
		},
		{
			name:   "empty job analysis is accepted",
			schema: "job_analysis",
			doc:    map[string]any{},
		},
		{
			name:      "skills must be a list",
			schema:    "job_analysis",
			doc:       map[string]any{"required_skills": "Go, Kubernetes"},
			wantError: true,
		},
		{
			name:   "project matches",
			schema: "project_matches",
			doc: map[string]any{"projects": []any{
				map[string]any{"repo_name": "svc", "relevance_score": 91.0, "live_link": nil},
			}},
		},
		{
			name:      "project match without name",
			schema:    "project_matches",
			doc:       map[string]any{"projects": []any{map[string]any{"relevance_score": 10.0}}},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, tt.doc)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.schema, validationErr.Schema)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope", map[string]any{})
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "nope.schema.json")
}

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["person"],
		"properties": {
			"person": {
				"type": "object",
				"required": ["name"],
				"properties": {"name": {"type": "string"}}
			}
		}
	}`

	err := ValidateJSONString(schemaContent, `{"person": {}}`)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.NotEmpty(t, validationErr.Errors)
	assert.NotEqual(t, "", validationErr.Errors[0].Field)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Schema: "quality_feedback",
		Errors: []FieldError{
			{Field: "overall_score", Message: "is required"},
			{Field: "grammar_score", Message: "must be a number"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "quality_feedback")
	assert.Contains(t, msg, "overall_score")
	assert.Contains(t, msg, "grammar_score")
}
