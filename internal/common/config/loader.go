// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"gmbh-wizard/internal/common/validation"
)

// Load reads configs/config.yaml (and config.<APP_ENVIRONMENT>.yaml on top
// of it), applies environment overrides and validates the result.
func Load() (*Config, error) {
	return load("")
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}

		env := os.Getenv("APP_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		_ = v.MergeInConfig() // optional overlay
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyPlatformPort(&cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gmbh-wizard")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9090)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.tls_redirect", false)
	v.SetDefault("server.static_dir", "web/static")
	v.SetDefault("server.template_dir", "web/templates")
	v.SetDefault("server.static_max_age", 365*24*time.Hour)
	v.SetDefault("server.gzip_types", []string{
		"text/html", "text/plain", "text/javascript", "text/css", "text/csv", "application/javascript",
	})

	v.SetDefault("wizard.disclaimer", "<p>Dieser Assistent erstellt die Gründungsdokumente Ihrer GmbH. Die Angaben werden nicht gespeichert.</p>")
	v.SetDefault("wizard.rejection_text", "Dann halt nicht")
	v.SetDefault("wizard.consent_literal", "Ja")

	v.SetDefault("documents.registry_path", "documents/registry.json")
	v.SetDefault("documents.bank_details", "ZKB, Abteilung SCBJ3, Postfach, 8010 Zürich")
	v.SetDefault("documents.date_format", "02.01.2006")

	v.SetDefault("storage.work_dir", filepath.Join(os.TempDir(), "gmbh-wizard"))
	v.SetDefault("storage.retention", 24*time.Hour)
	v.SetDefault("storage.sweep_interval", 15*time.Minute)

	v.SetDefault("mail.provider", "smtp")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.recipients", []string{})
	v.SetDefault("mail.subject", "Gründung {{.gmbh_name}}")
	v.SetDefault("mail.timeout", 30*time.Second)
	v.SetDefault("mail.smtp.host", "")
	v.SetDefault("mail.smtp.port", 587)
	v.SetDefault("mail.smtp.username", "")
	v.SetDefault("mail.smtp.password", "")
	v.SetDefault("mail.smtp.use_tls", true)
	v.SetDefault("mail.aws.region", "eu-central-1")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// applyPlatformPort honours the PORT variable set by the hosting platform.
// Its presence marks a cloud deployment behind a TLS-terminating proxy.
func applyPlatformPort(cfg *Config) error {
	raw := os.Getenv("PORT")
	if raw == "" {
		return nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid PORT %q: %w", raw, err)
	}
	cfg.Server.Port = port
	cfg.Server.TLSRedirect = true
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Wizard.ConsentLiteral == "" {
		return fmt.Errorf("wizard.consent_literal is required")
	}
	if cfg.Documents.RegistryPath == "" {
		return fmt.Errorf("documents.registry_path is required")
	}
	if cfg.Storage.WorkDir == "" {
		return fmt.Errorf("storage.work_dir is required")
	}
	if cfg.Storage.Retention <= 0 {
		return fmt.Errorf("storage.retention must be positive")
	}
	if cfg.Mail.Timeout <= 0 {
		return fmt.Errorf("mail.timeout must be positive")
	}
	if cfg.Mail.From == "" {
		return fmt.Errorf("mail.from is required")
	}
	if !validation.IsEmail(cfg.Mail.From) {
		return fmt.Errorf("mail.from is not a valid address: %q", cfg.Mail.From)
	}
	if len(cfg.Mail.Recipients) == 0 {
		return fmt.Errorf("mail.recipients needs at least one address")
	}
	for _, addr := range cfg.Mail.Recipients {
		if !validation.IsEmail(addr) {
			return fmt.Errorf("mail.recipients holds an invalid address: %q", addr)
		}
	}

	switch cfg.Mail.Provider {
	case "smtp":
		if cfg.Mail.SMTP.Host == "" || strings.Contains(cfg.Mail.SMTP.Host, "${") {
			return fmt.Errorf("mail.smtp.host is required")
		}
		if cfg.Mail.SMTP.Port <= 0 || cfg.Mail.SMTP.Port > 65535 {
			return fmt.Errorf("mail.smtp.port must be between 1 and 65535")
		}
	case "ses":
		if cfg.Mail.AWS.Region == "" {
			return fmt.Errorf("mail.aws.region is required for the ses provider")
		}
	default:
		return fmt.Errorf("mail.provider must be smtp or ses, got %q", cfg.Mail.Provider)
	}
	return nil
}
