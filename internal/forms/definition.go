// Package forms declares the wizard's step forms and renders them as
// Bootstrap-styled HTML.
package forms

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind is the input type of a field.
type Kind string

const (
	KindText   Kind = "text"
	KindSelect Kind = "select"
	KindDate   Kind = "date"
	KindEmail  Kind = "email"
	KindTel    Kind = "tel"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindSelect, KindDate, KindEmail, KindTel:
		return true
	}
	return false
}

// Choice is one option of a select field.
type Choice struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// Field is one labelled input of a form.
type Field struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Kind     Kind     `yaml:"kind"`
	Choices  []Choice `yaml:"choices,omitempty"`
	Required bool     `yaml:"required,omitempty"`
}

// Definition is an ordered list of fields shown on one wizard step. Title is
// the prompt rendered above the form; it may be empty.
type Definition struct {
	ID     string  `yaml:"id"`
	Title  string  `yaml:"title"`
	Fields []Field `yaml:"fields"`
}

// Validate checks the definition for structural mistakes.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("form definition without id")
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for i, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("form %s: field %d has no name", d.ID, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field %q", d.ID, f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Kind.valid() {
			return fmt.Errorf("form %s: field %q has unknown kind %q", d.ID, f.Name, f.Kind)
		}
		if f.Kind == KindSelect && len(f.Choices) == 0 {
			return fmt.Errorf("form %s: select field %q has no choices", d.ID, f.Name)
		}
	}
	return nil
}

// Names returns the field names in declaration order.
func (d Definition) Names() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Catalog holds the parsed form definitions keyed by id.
type Catalog struct {
	forms map[string]Definition
	order []string
}

//go:embed forms.yaml
var defaultForms []byte

// Default returns the catalog compiled into the binary. It panics if the
// embedded document is invalid, which tests guard against.
func Default() *Catalog {
	c, err := Parse(defaultForms)
	if err != nil {
		panic(fmt.Sprintf("forms: embedded definitions: %v", err))
	}
	return c
}

// Parse decodes a YAML document with a top-level "forms" list.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Forms []Definition `yaml:"forms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse form definitions: %w", err)
	}

	c := &Catalog{forms: make(map[string]Definition, len(doc.Forms))}
	for _, def := range doc.Forms {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.forms[def.ID]; dup {
			return nil, fmt.Errorf("duplicate form id %q", def.ID)
		}
		c.forms[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (Definition, bool) {
	def, ok := c.forms[id]
	return def, ok
}

// MustGet is Get for ids known at compile time.
func (c *Catalog) MustGet(id string) Definition {
	def, ok := c.Get(id)
	if !ok {
		panic(fmt.Sprintf("forms: unknown form %q", id))
	}
	return def
}

// IDs returns the form ids in document order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// RequiredNames returns the sorted names of all required fields across the
// catalog.
func (c *Catalog) RequiredNames() []string {
	var names []string
	for _, id := range c.order {
		for _, f := range c.forms[id].Fields {
			if f.Required {
				names = append(names, f.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// ChoiceValues returns the allowed values of the named select field, or nil
// if no select field carries that name.
func (c *Catalog) ChoiceValues(name string) []string {
	for _, id := range c.order {
		for _, f := range c.forms[id].Fields {
			if f.Name != name || f.Kind != KindSelect {
				continue
			}
			values := make([]string, len(f.Choices))
			for i, ch := range f.Choices {
				values[i] = ch.Value
			}
			return values
		}
	}
	return nil
}

// Fields returns every field of the catalog in document order.
func (c *Catalog) Fields() []Field {
	var out []Field
	for _, id := range c.order {
		out = append(out, c.forms[id].Fields...)
	}
	return out
}
