package documents

import (
	"context"
	"os"
	"time"

	apperrors "gmbh-wizard/internal/common/errors"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/common/metrics"
	"gmbh-wizard/pkg/registry"
)

// Injected field names. They override submitted values of the same name.
const (
	FieldBank         = "bank"
	FieldDatumAuftrag = "datum_auftrag"
	FieldKanton       = "kanton"
)

const (
	DefaultBankDetails = "ZKB, Abteilung SCBJ3, Postfach, 8010 Zürich"
	DefaultDateFormat  = "02.01.2006"
)

// Generated is one merged document.
type Generated struct {
	// Path of the merged file in the work directory.
	Path string
	// Name is the entry name inside the delivered archive.
	Name string
}

// Set is the ordered output of one MergeAll call.
type Set struct {
	Documents []Generated
}

// Cleanup removes every merged file. It is safe to call more than once.
func (s *Set) Cleanup() {
	if s == nil {
		return
	}
	for _, d := range s.Documents {
		_ = os.Remove(d.Path)
	}
	s.Documents = nil
}

// Len returns the number of documents in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Documents)
}

type Config struct {
	BankDetails string
	DateFormat  string
	// OutDir receives merged files; empty means os.TempDir().
	OutDir string
}

type Option func(*Engine)

// WithClock replaces time.Now for the injected order date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine merges the registered templates for a submission.
type Engine struct {
	registry *registry.DocumentRegistry
	config   Config
	logger   logger.Logger
	now      func() time.Time
}

func NewEngine(reg *registry.DocumentRegistry, cfg Config, log logger.Logger, opts ...Option) *Engine {
	if cfg.BankDetails == "" {
		cfg.BankDetails = DefaultBankDetails
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultDateFormat
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	e := &Engine{
		registry: reg,
		config:   cfg,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MergeFields returns the values substituted into every template: the
// submission plus the injected bank details and order date.
func (e *Engine) MergeFields(record map[string]string) map[string]string {
	fields := make(map[string]string, len(record)+2)
	for k, v := range record {
		fields[k] = v
	}
	fields[FieldBank] = e.config.BankDetails
	fields[FieldDatumAuftrag] = e.now().Format(e.config.DateFormat)
	return fields
}

// Documents returns the templates that apply to the submission.
func (e *Engine) Documents(record map[string]string) []registry.Document {
	return e.registry.For(record[FieldKanton])
}

// MergeAll merges every applicable template in registry order. On failure
// the documents produced so far are removed and a DOCUMENT_ERROR returned.
func (e *Engine) MergeAll(ctx context.Context, record map[string]string) (*Set, error) {
	fields := e.MergeFields(record)
	docs := e.Documents(record)
	set := &Set{Documents: make([]Generated, 0, len(docs))}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			set.Cleanup()
			return nil, apperrors.NewDocumentError(doc.ID, err)
		}

		start := time.Now()
		path, err := Merge(doc.File, fields, e.config.OutDir)
		if err != nil {
			set.Cleanup()
			e.logger.Error("Document merge failed", map[string]interface{}{
				"document": doc.ID,
				"template": doc.File,
				"error":    err.Error(),
			})
			return nil, apperrors.NewDocumentError(doc.ID, err)
		}

		set.Documents = append(set.Documents, Generated{Path: path, Name: doc.ArchiveName})
		metrics.DocumentsGenerated.Inc()
		e.logger.Debug("Document merged", map[string]interface{}{
			"document": doc.ID,
			"output":   path,
			"duration": time.Since(start).String(),
		})
	}
	return set, nil
}
