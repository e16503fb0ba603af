// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardStepRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_step_requests_total",
			Help: "Wizard requests per step and outcome",
		},
		[]string{"step", "outcome"},
	)

	DocumentsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "documents_generated_total",
			Help: "Total number of merged legal documents",
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of the create pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	MailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_sent_total",
			Help: "Outbound founding mails by provider and status",
		},
		[]string{"provider", "status"},
	)

	ArchivesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempstore_files_swept_total",
			Help: "Expired files removed from the work directory",
		},
	)
)
