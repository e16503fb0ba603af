package forms

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
)

//go:embed templates/form.tmpl
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.tmpl"))

const (
	DefaultMethod  = "GET"
	DefaultEnctype = "multipart/form-data"
	DefaultID      = "wizard-form"
)

// HiddenField is a value from an earlier step carried through the form.
type HiddenField struct {
	Name  string
	Value string
}

type renderConfig struct {
	method  string
	enctype string
	id      string
	hidden  map[string]string
}

// RenderOption customises a single Render call.
type RenderOption func(*renderConfig)

// WithMethod sets the form's HTTP method.
func WithMethod(method string) RenderOption {
	return func(c *renderConfig) {
		if method != "" {
			c.method = strings.ToUpper(method)
		}
	}
}

func WithEnctype(enctype string) RenderOption {
	return func(c *renderConfig) {
		if enctype != "" {
			c.enctype = enctype
		}
	}
}

func WithID(id string) RenderOption {
	return func(c *renderConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// WithHidden adds hidden inputs. Later calls win on name collisions; empty
// names are dropped.
func WithHidden(fields map[string]string) RenderOption {
	return func(c *renderConfig) {
		for name, value := range fields {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			if c.hidden == nil {
				c.hidden = make(map[string]string, len(fields))
			}
			c.hidden[name] = value
		}
	}
}

type formView struct {
	Action  string
	Method  string
	Enctype string
	ID      string
	Hidden  []HiddenField
	Fields  []Field
}

// Render produces the markup of def posting to action. The output depends
// only on its inputs.
func Render(def Definition, action string, opts ...RenderOption) (template.HTML, error) {
	cfg := renderConfig{method: DefaultMethod, enctype: DefaultEnctype, id: DefaultID}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	view := formView{
		Action:  action,
		Method:  cfg.method,
		Enctype: cfg.enctype,
		ID:      cfg.id,
		Hidden:  sortedHidden(cfg.hidden),
		Fields:  def.Fields,
	}

	var buf bytes.Buffer
	if err := formTemplate.ExecuteTemplate(&buf, "form", view); err != nil {
		return "", fmt.Errorf("render form %s: %w", def.ID, err)
	}
	return template.HTML(buf.String()), nil
}

func sortedHidden(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	out := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		out = append(out, HiddenField{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
