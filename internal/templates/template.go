// Package templates loads page and mail shells once at start-up and fills
// their named placeholders per request.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	apperrors "gmbh-wizard/internal/common/errors"
)

// Template is an immutable, parsed page or mail template. Placeholders are
// written {{.name}}; values are HTML-escaped unless the template wraps the
// slot in {{raw .name}}, which is reserved for markup produced by the
// application itself (form renderer output, sanitized disclaimer).
type Template struct {
	name string
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"raw": func(s string) template.HTML { return template.HTML(s) },
}

// Load reads and parses the template at path.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("template load", err).WithMetadata("path", path)
	}
	return LoadString(filepath.Base(path), string(data))
}

// LoadString parses an in-memory template.
func LoadString(name, text string) (*Template, error) {
	tmpl, err := template.New(name).
		Option("missingkey=zero").
		Funcs(funcs).
		Parse(text)
	if err != nil {
		return nil, apperrors.NewIOError("template parse", fmt.Errorf("%s: %w", name, err))
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// MustLoadString is LoadString for compiled-in templates.
func MustLoadString(name, text string) *Template {
	t, err := LoadString(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the template's file name.
func (t *Template) Name() string {
	return t.name
}

// Render fills the template. Placeholders without a matching key render as
// the empty string; Render never fails. Should execution stop early the
// output written so far is returned.
func (t *Template) Render(fields map[string]string) string {
	if fields == nil {
		fields = map[string]string{}
	}
	var buf bytes.Buffer
	_ = t.tmpl.Execute(&buf, fields)
	return buf.String()
}
