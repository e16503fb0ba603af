package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gmbh-wizard/internal/common/config"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/common/observability"
	"gmbh-wizard/internal/documents"
	"gmbh-wizard/internal/forms"
	"gmbh-wizard/internal/mailer"
	"gmbh-wizard/internal/templates"
	"gmbh-wizard/internal/tempstore"
	"gmbh-wizard/internal/wizard"
	"gmbh-wizard/pkg/registry"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wizard web server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	log.Info("Starting gmbh-wizard", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"addr":        cfg.Server.Addr(),
		"mail":        cfg.Mail.Provider,
		"tlsRedirect": cfg.Server.TLSRedirect,
	})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return fmt.Errorf("observability init failed: %w", err)
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, store, err := buildApp(ctx, cfg, log, obs)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.Storage.SweepInterval > 0 {
		g.Go(func() error {
			return store.Run(gctx, cfg.Storage.SweepInterval, cfg.Storage.Retention)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received, stopping server", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", map[string]interface{}{"error": err.Error()})
		return err
	}
	log.Info("gmbh-wizard stopped gracefully", nil)
	return nil
}

// buildApp wires registry, engine, store, mailer, pipeline and controller
// into the HTTP handler.
func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability) (http.Handler, *tempstore.Store, error) {
	reg, err := registry.LoadRegistry(cfg.Documents.RegistryPath)
	if err != nil {
		return nil, nil, err
	}
	if err := reg.Validate(true); err != nil {
		return nil, nil, fmt.Errorf("document registry %s: %w", cfg.Documents.RegistryPath, err)
	}

	store, err := tempstore.New(cfg.Storage.WorkDir, log)
	if err != nil {
		return nil, nil, err
	}

	engine := documents.NewEngine(reg, documents.Config{
		BankDetails: cfg.Documents.BankDetails,
		DateFormat:  cfg.Documents.DateFormat,
		OutDir:      store.Dir(),
	}, log)

	sender, err := mailer.New(ctx, cfg.Mail, log)
	if err != nil {
		return nil, nil, err
	}

	page, err := templates.Load(filepath.Join(cfg.Server.TemplateDir, "page.html"))
	if err != nil {
		return nil, nil, err
	}
	body, err := templates.Load(filepath.Join(cfg.Server.TemplateDir, "mail.html"))
	if err != nil {
		return nil, nil, err
	}
	subject, err := templates.LoadString("subject", cfg.Mail.Subject)
	if err != nil {
		return nil, nil, err
	}

	pipeline := wizard.NewPipeline(engine, store, sender, wizard.MailSettings{
		From:       cfg.Mail.From,
		Recipients: cfg.Mail.Recipients,
		Subject:    subject,
		Body:       body,
	}, log, wizard.WithObservability(obs))

	ctrl := wizard.NewController(wizard.Dependencies{
		Config:   cfg.Wizard,
		Forms:    forms.Default(),
		Page:     page,
		Pipeline: pipeline,
		Store:    store,
		Logger:   log,
	})

	log.Info("Wizard ready", map[string]interface{}{
		"documents": len(reg.Documents),
		"workDir":   store.Dir(),
	})
	return wizard.NewRouter(ctrl, cfg.Server, log), store, nil
}
