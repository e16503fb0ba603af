// Package wizard serves the founding wizard: disclaimer, consent, canton,
// personal data and the create step.
package wizard

import (
	"html"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"gmbh-wizard/internal/common/config"
	apperrors "gmbh-wizard/internal/common/errors"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/common/metrics"
	"gmbh-wizard/internal/common/validation"
	"gmbh-wizard/internal/forms"
	"gmbh-wizard/internal/templates"
	"gmbh-wizard/internal/tempstore"
)

const (
	FieldConsent = "einverstanden"
	FieldCanton  = "kanton"

	formConsent  = "consent"
	formCanton   = "canton"
	formPersonal = "personal"
)

// Dependencies wires the controller.
type Dependencies struct {
	Config   config.WizardConfig
	Forms    *forms.Catalog
	Page     *templates.Template
	Pipeline *Pipeline
	Store    *tempstore.Store
	Logger   logger.Logger
}

type Controller struct {
	cfg        config.WizardConfig
	forms      *forms.Catalog
	page       *templates.Template
	pipeline   *Pipeline
	store      *tempstore.Store
	logger     logger.Logger
	errors     *apperrors.ErrorHandler
	disclaimer string
	schema     validation.JSONSchema
}

func NewController(deps Dependencies) *Controller {
	if deps.Forms == nil {
		deps.Forms = forms.Default()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Config.ConsentLiteral == "" {
		deps.Config.ConsentLiteral = "Ja"
	}

	c := &Controller{
		cfg:        deps.Config,
		forms:      deps.Forms,
		page:       deps.Page,
		pipeline:   deps.Pipeline,
		store:      deps.Store,
		logger:     deps.Logger,
		disclaimer: bluemonday.UGCPolicy().Sanitize(deps.Config.Disclaimer),
	}
	c.errors = apperrors.NewErrorHandler(deps.Logger, c.failurePage)
	c.schema = validation.SchemaFor(c.createRules())
	return c
}

// createRules lists the keys /create cannot do without. Enumerations only
// apply to required select fields and addresses must be deliverable; every
// other value stays opaque.
func (c *Controller) createRules() []validation.FieldRule {
	var rules []validation.FieldRule
	for _, f := range c.forms.Fields() {
		if !f.Required {
			continue
		}
		rule := validation.FieldRule{Name: f.Name, Label: f.Label, Required: true}
		switch f.Kind {
		case forms.KindSelect:
			rule.Enum = c.forms.ChoiceValues(f.Name)
		case forms.KindEmail:
			rule.Email = true
		}
		if f.Name == FieldConsent {
			rule.Enum = []string{c.cfg.ConsentLiteral}
		}
		rules = append(rules, rule)
	}
	return rules
}

func (c *Controller) renderPage(w http.ResponseWriter, status int, title, content string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	body := content
	if c.page != nil {
		body = c.page.Render(map[string]string{"title": title, "content": content})
	}
	_, _ = w.Write([]byte(body))
}

func (c *Controller) failurePage(w http.ResponseWriter, status int, title, message string) {
	c.renderPage(w, status, title, `<div class="alert alert-danger">`+html.EscapeString(message)+`</div>`)
}

func (c *Controller) renderForm(w http.ResponseWriter, r *http.Request, formID, action, intro string, opts ...forms.RenderOption) {
	def := c.forms.MustGet(formID)
	markup, err := forms.Render(def, action, opts...)
	if err != nil {
		c.errors.Handle(w, r, apperrors.NewIOError("form render", err))
		return
	}
	var b strings.Builder
	if intro != "" {
		b.WriteString(intro)
	}
	if def.Title != "" {
		b.WriteString(`<div class="form-title">` + html.EscapeString(def.Title) + `</div>`)
	}
	b.WriteString(string(markup))
	c.renderPage(w, http.StatusOK, def.Title, b.String())
}

// Index shows the disclaimer and the consent form.
func (c *Controller) Index(w http.ResponseWriter, r *http.Request) {
	metrics.WizardStepRequests.WithLabelValues("start", "shown").Inc()
	intro := `<div class="disclaimer">` + c.disclaimer + `</div>`
	c.renderForm(w, r, formConsent, "/step1", intro)
}

// Step1 requires the consent literal and asks for the canton.
func (c *Controller) Step1(w http.ResponseWriter, r *http.Request) {
	rec, err := RecordFromRequest(r)
	if err != nil {
		c.errors.Handle(w, r, err)
		return
	}
	if rec.Get(FieldConsent) != c.cfg.ConsentLiteral {
		metrics.WizardStepRequests.WithLabelValues("consent", "rejected").Inc()
		c.renderPage(w, http.StatusOK, "", `<div class="rejection">`+html.EscapeString(c.cfg.RejectionText)+`</div>`)
		return
	}
	metrics.WizardStepRequests.WithLabelValues("consent", "accepted").Inc()
	c.renderForm(w, r, formCanton, "/step2", "",
		forms.WithHidden(rec.Subset(FieldConsent)))
}

// Step2 shows the personal data form for a known canton and sends everyone
// else back to the canton selection.
func (c *Controller) Step2(w http.ResponseWriter, r *http.Request) {
	rec, err := RecordFromRequest(r)
	if err != nil {
		c.errors.Handle(w, r, err)
		return
	}
	if !c.knownCanton(rec.Get(FieldCanton)) {
		metrics.WizardStepRequests.WithLabelValues("canton", "redirected").Inc()
		target := "/step1?" + url.Values{FieldConsent: {rec.Get(FieldConsent)}}.Encode()
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	metrics.WizardStepRequests.WithLabelValues("canton", "accepted").Inc()
	c.renderForm(w, r, formPersonal, "/create", "",
		forms.WithMethod(http.MethodPost),
		forms.WithHidden(rec.Subset(FieldConsent, FieldCanton)))
}

func (c *Controller) knownCanton(canton string) bool {
	if canton == "" {
		return false
	}
	for _, v := range c.forms.ChoiceValues(FieldCanton) {
		if v == canton {
			return true
		}
	}
	return false
}

// Create validates the submission, runs the pipeline and links the archive.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	rec, err := RecordFromRequest(r)
	if err != nil {
		c.errors.Handle(w, r, err)
		return
	}

	result, err := validation.ValidateRecord(rec, c.schema)
	if err != nil {
		c.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	if !result.Valid {
		metrics.WizardStepRequests.WithLabelValues("create", "invalid").Inc()
		c.errors.Handle(w, r, apperrors.NewValidationError(strings.Join(result.GetErrorMessages(), "; ")))
		return
	}

	res, err := c.pipeline.Run(r.Context(), rec)
	if err != nil {
		metrics.WizardStepRequests.WithLabelValues("create", "failed").Inc()
		c.errors.Handle(w, r, err)
		return
	}
	metrics.WizardStepRequests.WithLabelValues("create", "completed").Inc()

	link := "/download/" + url.PathEscape(res.ArchiveName)
	var b strings.Builder
	b.WriteString(`<div class="confirmation">`)
	b.WriteString(`<p>Die Gründungsdokumente wurden erstellt und per E-Mail versendet.</p>`)
	b.WriteString(`<ul class="documents">`)
	for _, name := range res.Documents {
		b.WriteString(`<li>` + html.EscapeString(name) + `</li>`)
	}
	b.WriteString(`</ul>`)
	b.WriteString(`<p><a class="btn btn-primary" id="download_link" href="` + template.HTMLEscapeString(link) + `">Dokumente herunterladen</a></p>`)
	b.WriteString(`</div>`)
	c.renderPage(w, http.StatusOK, "Gründung abgeschlossen", b.String())
}

// Download streams a previously created archive.
func (c *Controller) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, info, err := c.store.Open(name)
	if err != nil {
		c.errors.Handle(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
