package wizard

import (
	"context"
	"html"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gmbh-wizard/internal/archive"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/common/metrics"
	"gmbh-wizard/internal/common/observability"
	"gmbh-wizard/internal/documents"
	"gmbh-wizard/internal/mailer"
	"gmbh-wizard/internal/templates"
	"gmbh-wizard/internal/tempstore"
)

const (
	stageMerge   = "merge"
	stageArchive = "archive"
	stageMail    = "mail"

	FieldFounderEmail = "email_gruender"
	FieldCompanyName  = "gmbh_name"

	defaultAttachmentName = "Gruendungsdokumente.zip"
)

// MailSettings configures the founding mail.
type MailSettings struct {
	From string
	// Recipients receive the mail directly; the founder is copied.
	Recipients []string
	Subject    *templates.Template
	Body       *templates.Template
	// AttachmentName is the file name of the attached archive.
	AttachmentName string
}

// Result describes a completed create run.
type Result struct {
	ArchiveName string
	Documents   []string
}

// Pipeline runs merge, archive and mail for one submission. A stage only
// runs when the previous one succeeded.
type Pipeline struct {
	engine *documents.Engine
	store  *tempstore.Store
	sender mailer.Sender
	mail   MailSettings
	logger logger.Logger
	tracer trace.Tracer
	obs    *observability.Observability
}

type PipelineOption func(*Pipeline)

func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithObservability records run counts and durations on the otel meter.
func WithObservability(obs *observability.Observability) PipelineOption {
	return func(p *Pipeline) {
		p.obs = obs
		if obs != nil {
			p.tracer = obs.Tracer("gmbh-wizard/pipeline")
		}
	}
}

func NewPipeline(engine *documents.Engine, store *tempstore.Store, sender mailer.Sender, mail MailSettings, log logger.Logger, opts ...PipelineOption) *Pipeline {
	if mail.AttachmentName == "" {
		mail.AttachmentName = defaultAttachmentName
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	p := &Pipeline{
		engine: engine,
		store:  store,
		sender: sender,
		mail:   mail,
		logger: log,
		tracer: otel.Tracer("gmbh-wizard/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline. Merged documents never outlive the call; the
// archive stays in the store even when mailing fails.
func (p *Pipeline) Run(ctx context.Context, rec Record) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.create")
	defer span.End()

	res, err := p.run(ctx, rec)

	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("archive", res.ArchiveName))
	}
	p.obs.RecordRun(ctx, status, time.Since(start))
	return res, err
}

func (p *Pipeline) run(ctx context.Context, rec Record) (*Result, error) {
	log := p.logger.WithFields(map[string]interface{}{
		"kanton":   rec.Get(documents.FieldKanton),
		"gmbhName": rec.Get(FieldCompanyName),
	})

	var set *documents.Set
	err := p.stage(ctx, stageMerge, func(ctx context.Context) error {
		var err error
		set, err = p.engine.MergeAll(ctx, rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer set.Cleanup()

	res := &Result{ArchiveName: tempstore.NewArchiveName()}
	entries := make([]archive.Entry, 0, set.Len())
	for _, d := range set.Documents {
		entries = append(entries, archive.Entry{Path: d.Path, Name: d.Name})
		res.Documents = append(res.Documents, d.Name)
	}

	var archivePath string
	err = p.stage(ctx, stageArchive, func(context.Context) error {
		path, err := p.store.Path(res.ArchiveName)
		if err != nil {
			return err
		}
		if err := archive.Create(path, entries); err != nil {
			return err
		}
		archivePath = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	set.Cleanup()
	log.Info("Archive created", map[string]interface{}{
		"archive":   res.ArchiveName,
		"documents": len(entries),
	})

	err = p.stage(ctx, stageMail, func(ctx context.Context) error {
		return p.sender.Send(ctx, p.message(rec, archivePath))
	})
	if err != nil {
		log.Warn("Archive kept after mail failure", map[string]interface{}{
			"archive": res.ArchiveName,
		})
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Pipeline) message(rec Record, archivePath string) mailer.Message {
	fields := p.engine.MergeFields(rec)

	var cc []string
	if founder := rec.Get(FieldFounderEmail); founder != "" {
		cc = []string{founder}
	}
	subject := ""
	if p.mail.Subject != nil {
		// Subjects are plain text; undo the HTML escaping of the renderer.
		subject = html.UnescapeString(p.mail.Subject.Render(fields))
	}
	body := ""
	if p.mail.Body != nil {
		body = p.mail.Body.Render(fields)
	}

	return mailer.Message{
		From:     p.mail.From,
		To:       append([]string(nil), p.mail.Recipients...),
		CC:       cc,
		Subject:  subject,
		HTMLBody: body,
		Attachments: []mailer.Attachment{{
			Filename:    p.mail.AttachmentName,
			ContentType: mailer.ContentTypeZip,
			Path:        archivePath,
		}},
	}
}
