package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Models []yamlModel `yaml:"models"`
}

type yamlModel struct {
	Name   string      `yaml:"name"`
	Table  string      `yaml:"table"`
	Fields []yamlField `yaml:"fields"`
}

type yamlField struct {
	Name          string `yaml:"name"`
	Kind          string `yaml:"kind"`
	PrimaryKey    bool   `yaml:"primary_key"`
	AutoIncrement bool   `yaml:"auto_increment"`
	NotNull       bool   `yaml:"not_null"`
	Unique        bool   `yaml:"unique"`
	Default       any    `yaml:"default"`
	Description   string `yaml:"description"`
	Size          int    `yaml:"size"`
	Precision     int    `yaml:"precision"`
	References    string `yaml:"references"`
}

// LoadFile reads a YAML declarations file and registers its models in file
// order. See LoadYAML.
func (r *Registry) LoadFile(filename string) ([]*Model, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("reading declarations file: %w", err)
	}
	defer f.Close()
	return r.LoadYAML(f)
}

// LoadYAML decodes model declarations and registers them in document order.
// A field's "references" names a model that is already registered, either
// earlier in the same document or before the call.
func (r *Registry) LoadYAML(in io.Reader) ([]*Model, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(in).Decode(&doc); err != nil {
		return nil, fmt.Errorf("unmarshalling declarations: %w", err)
	}

	models := make([]*Model, 0, len(doc.Models))
	for _, ym := range doc.Models {
		decl := Declaration{Name: ym.Name, Table: ym.Table}
		for _, yf := range ym.Fields {
			field, err := r.yamlToField(ym.Name, yf)
			if err != nil {
				return nil, err
			}
			decl.Fields = append(decl.Fields, field)
		}
		model, err := r.Register(decl)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, nil
}

func (r *Registry) yamlToField(model string, yf yamlField) (Field, error) {
	kind, err := ParseKind(yf.Kind)
	if err != nil {
		return Field{}, &DeclarationError{Model: model, Err: fmt.Errorf("field %s: %w", yf.Name, ErrUnknownKind)}
	}

	field := Field{
		Name:        yf.Name,
		Kind:        kind,
		Default:     yamlDefault(kind, yf.Default),
		Description: yf.Description,
		Size:        yf.Size,
		Precision:   yf.Precision,
	}
	if yf.PrimaryKey {
		field.Constraints |= PrimaryKey
	}
	if yf.AutoIncrement {
		field.Constraints |= AutoIncrement
	}
	if yf.NotNull {
		field.Constraints |= NotNull
	}
	if yf.Unique {
		field.Constraints |= Unique
	}
	if yf.References != "" {
		target, ok := r.Lookup(yf.References)
		if !ok {
			return Field{}, &DeclarationError{
				Model: model,
				Err:   fmt.Errorf("field %s references unknown model %q: %w", yf.Name, yf.References, ErrInvalidForeignKey),
			}
		}
		field.References = target
	}
	return field, nil
}

// yamlDefault adapts YAML scalars to what Field.Convert accepts. Values it
// cannot adapt pass through and fail validation in Compile.
func yamlDefault(kind Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case Real:
		if n, ok := v.(int); ok {
			return float64(n)
		}
	case Text:
		switch x := v.(type) {
		case int:
			return fmt.Sprint(x)
		case bool:
			return fmt.Sprint(x)
		}
	case Time:
		if s, ok := v.(string); ok {
			if d, err := (&Field{Kind: Time}).Scan(s); err == nil {
				return d
			}
		}
	}
	return v
}
