package definition

import (
	"embed"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	workflowSchema = mustLoadSchema("schemas/workflow.schema.json")
	formSchema     = mustLoadSchema("schemas/form.schema.json")
)

func mustLoadSchema(name string) *gojsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("definition: missing schema %s: %v", name, err))
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("definition: invalid schema %s: %v", name, err))
	}

	return schema
}

// decode parses a YAML (or JSON) document into out. Shape violations found by schema are
// added to p and decoding carries on, so the semantic checks that follow still run and
// every problem of the document is reported at once. The returned set holds the paths
// of the values the schema rejected, e.g. "steps.0.step_number".
func decode(name string, data []byte, schema *gojsonschema.Schema, out any, p *problems) (map[string]bool, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigurationError{Source: name, Problems: []string{fmt.Sprintf("malformed document: %v", err)}}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(normalizeYAML(raw)))
	if err != nil {
		return nil, &ConfigurationError{Source: name, Problems: []string{fmt.Sprintf("malformed document: %v", err)}}
	}

	invalid := make(map[string]bool)

	for _, desc := range result.Errors() {
		p.add("%s", desc.String())
		invalid[desc.Field()] = true
	}

	err = yaml.Unmarshal(data, out)
	if err == nil {
		return invalid, nil
	}

	var typeErr *yaml.TypeError
	if !errors.As(err, &typeErr) {
		p.add("malformed document: %v", err)

		return invalid, p.err(name)
	}

	// yaml keeps decoding past type mismatches; they are already reported by the schema
	// unless it missed them.
	if len(invalid) == 0 {
		for _, msg := range typeErr.Errors {
			p.add("%s", msg)
		}
	}

	return invalid, nil
}

// normalizeYAML converts mappings with non-string keys so the value can be encoded as JSON.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = normalizeYAML(item)
		}

		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}

		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}

		return v
	default:
		return v
	}
}
