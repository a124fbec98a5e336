package forms

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// rootKey is the section of a schema file holding the student intake.
const rootKey = "cadastro_aluno"

var defaultMinDate = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// ChoiceConfig configures select and multiselect fields.
type ChoiceConfig struct {
	Options []string `json:"options"`
}

// DateConfig bounds a date field. A nil Max means "today".
type DateConfig struct {
	Min time.Time  `json:"min"`
	Max *time.Time `json:"max,omitempty"`
}

// NumberConfig bounds a number field.
type NumberConfig struct {
	Min float64 `json:"min"`
}

// Field is one input of the intake form.
type Field struct {
	Name     string        `json:"name"`
	Label    string        `json:"label"`
	Kind     Kind          `json:"kind"`
	Required bool          `json:"required"`
	Choice   *ChoiceConfig `json:"choice,omitempty"`
	Date     *DateConfig   `json:"date,omitempty"`
	Number   *NumberConfig `json:"number,omitempty"`
}

// Category groups fields under a heading.
type Category struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Schema is the parsed intake form.
type Schema struct {
	Categories []Category `json:"categories"`
	byName     map[string]Field
}

type rawField struct {
	Name     string   `yaml:"nome"`
	Label    string   `yaml:"label"`
	Kind     string   `yaml:"tipo"`
	Required bool     `yaml:"obrigatorio"`
	Options  []string `yaml:"opcoes"`
	MinDate  string   `yaml:"data_minima"`
	MaxDate  string   `yaml:"data_maxima"`
	Min      *float64 `yaml:"minimo"`
}

// Load reads a schema file. JSON files in the legacy layout load as well.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes a schema document. The top level maps category names to
// field lists, optionally nested under "cadastro_aluno".
func Parse(data []byte) (*Schema, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse form schema: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("form schema is empty")
	}
	node := root.Content[0]
	if section := mappingValue(node, rootKey); section != nil {
		node = section
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("form schema must map categories to fields")
	}

	schema := &Schema{byName: map[string]Field{}}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var raws []rawField
		if err := node.Content[i+1].Decode(&raws); err != nil {
			return nil, fmt.Errorf("category %s: %w", name, err)
		}
		category := Category{Name: name, Title: Prettify(name)}
		for _, raw := range raws {
			field, err := compileField(raw)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", name, err)
			}
			if _, dup := schema.byName[field.Name]; dup {
				return nil, fmt.Errorf("duplicate field %q", field.Name)
			}
			schema.byName[field.Name] = field
			category.Fields = append(category.Fields, field)
		}
		schema.Categories = append(schema.Categories, category)
	}
	if len(schema.byName) == 0 {
		return nil, errors.New("form schema has no fields")
	}
	for name, field := range schema.byName {
		if field.Kind != KindYesNoDetail {
			continue
		}
		if _, clash := schema.byName[DetailKey(name)]; clash {
			return nil, fmt.Errorf("field %q clashes with the detail of %q", DetailKey(name), name)
		}
	}
	return schema, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func compileField(raw rawField) (Field, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Field{}, errors.New("field without name")
	}
	kind, err := ParseKind(raw.Kind)
	if err != nil {
		return Field{}, fmt.Errorf("field %s: %w", name, err)
	}
	label := strings.TrimSpace(raw.Label)
	if label == "" {
		label = Prettify(name)
	}

	field := Field{Name: name, Label: label, Kind: kind, Required: raw.Required}
	switch kind {
	case KindSelect, KindMultiSelect:
		if len(raw.Options) == 0 {
			return Field{}, fmt.Errorf("field %s: choice without options", name)
		}
		field.Choice = &ChoiceConfig{Options: raw.Options}
	case KindDate:
		cfg := &DateConfig{Min: defaultMinDate}
		if raw.MinDate != "" {
			if cfg.Min, err = time.Parse(DateLayout, raw.MinDate); err != nil {
				return Field{}, fmt.Errorf("field %s: invalid data_minima: %w", name, err)
			}
		}
		if raw.MaxDate != "" {
			ceiling, err := time.Parse(DateLayout, raw.MaxDate)
			if err != nil {
				return Field{}, fmt.Errorf("field %s: invalid data_maxima: %w", name, err)
			}
			cfg.Max = &ceiling
		}
		field.Date = cfg
	case KindNumber:
		cfg := &NumberConfig{}
		if raw.Min != nil {
			cfg.Min = *raw.Min
		}
		field.Number = cfg
	}
	return field, nil
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Fields returns every field in form order.
func (s *Schema) Fields() []Field {
	var out []Field
	for _, c := range s.Categories {
		out = append(out, c.Fields...)
	}
	return out
}

// Prettify turns a snake_case key into title case words.
func Prettify(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' })
	for i, p := range parts {
		runes := []rune(strings.ToLower(p))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
