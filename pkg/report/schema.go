package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/licensecount/pkg/license"
)

const schemaDraft = "https://json-schema.org/draft-07/schema#"

// ErrInvalidReport indicates JSON that does not match the report schema.
var ErrInvalidReport = errors.New("invalid report")

// JSONSchema is the subset of draft-07 emitted for report types.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"definitions,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// Schema returns the JSON schema of the json report format.
func Schema() ([]byte, error) {
	schema := generateSchema(reflect.TypeFor[license.Result]())
	schema.Title = "licensecount report"
	schema.Description = "Minimum license count with the per-user breakdown"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return data, nil
}

// ValidateJSON checks a rendered json report against Schema.
func ValidateJSON(data []byte) error {
	schema, err := Schema()
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(problems, "; "))
}

func generateSchema(t reflect.Type) *JSONSchema {
	defs := make(map[string]*JSONSchema)
	props, required := structToProperties(t, defs)
	closed := false

	schema := &JSONSchema{
		Schema:               schemaDraft,
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &closed,
	}

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

func structToProperties(t reflect.Type, defs map[string]*JSONSchema) (map[string]*JSONSchema, []string) {
	props := make(map[string]*JSONSchema)

	var required []string

	for i := range t.NumField() {
		field := t.Field(i)

		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			continue
		}

		props[name] = typeToSchema(field.Type, defs)

		if opts != "omitempty" {
			required = append(required, name)
		}
	}

	return props, required
}

func typeToSchema(t reflect.Type, defs map[string]*JSONSchema) *JSONSchema {
	switch t.Kind() {
	case reflect.String:
		return &JSONSchema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &JSONSchema{Type: "number"}
	case reflect.Bool:
		return &JSONSchema{Type: "boolean"}
	case reflect.Slice:
		return &JSONSchema{Type: "array", Items: typeToSchema(t.Elem(), defs)}
	case reflect.Struct:
		if _, exists := defs[t.Name()]; !exists {
			props, required := structToProperties(t, defs)
			closed := false
			defs[t.Name()] = &JSONSchema{Type: "object", Properties: props, Required: required, AdditionalProperties: &closed}
		}

		return &JSONSchema{Ref: "#/definitions/" + t.Name()}
	case reflect.Pointer:
		return typeToSchema(t.Elem(), defs)
	default:
		return &JSONSchema{Type: "object"}
	}
}
