package wizard

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gmbh-wizard/internal/common/config"
	"gmbh-wizard/internal/common/logger"
)

// StaticDirs are served below the static root with long-lived caching.
var StaticDirs = []string{"css", "bootstrap", "images", "js"}

// NewRouter mounts the wizard, the static assets and the operational
// endpoints.
func NewRouter(c *Controller, cfg config.ServerConfig, log logger.Logger) *chi.Mux {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(log))
	r.Use(SecurityHeaders)
	r.Use(TLSRedirect(cfg.TLSRedirect))
	if len(cfg.GzipTypes) > 0 {
		r.Use(middleware.Compress(5, cfg.GzipTypes...))
	}

	r.Get("/", c.Index)
	r.Get("/step1", c.Step1)
	r.Post("/step1", c.Step1)
	r.Get("/step2", c.Step2)
	r.Post("/step2", c.Step2)
	r.Post("/create", c.Create)
	r.Get("/download/{name}", c.Download)

	r.Get(healthPath, Healthz)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.StaticDir != "" {
		mountStatic(r, cfg.StaticDir, cfg.StaticMaxAge, log)
	}
	return r
}

func mountStatic(r chi.Router, root string, maxAge time.Duration, log logger.Logger) {
	cache := CacheStatic(maxAge, nil)
	for _, dir := range StaticDirs {
		path := filepath.Join(root, dir)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			log.Debug("Static directory skipped", map[string]interface{}{"dir": path})
			continue
		}
		prefix := "/" + dir
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(path)))
		r.With(cache).Handle(prefix+"/*", fs)
	}
}
