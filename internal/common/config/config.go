// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct. It is built once at
// process start and handed to the entry point explicitly.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Wizard    WizardConfig    `mapstructure:"wizard"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Mail      MailConfig      `mapstructure:"mail"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	StaticDir    string        `mapstructure:"static_dir"`
	TemplateDir  string        `mapstructure:"template_dir"`
	GzipTypes    []string      `mapstructure:"gzip_types"`
	StaticMaxAge time.Duration `mapstructure:"static_max_age"`

	// TLSRedirect sends plain-http requests to https. Switched on
	// automatically when the PORT variable is present (cloud deployment).
	TLSRedirect bool `mapstructure:"tls_redirect"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type WizardConfig struct {
	Disclaimer     string `mapstructure:"disclaimer"`
	RejectionText  string `mapstructure:"rejection_text"`
	ConsentLiteral string `mapstructure:"consent_literal"`
}

type DocumentsConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
	BankDetails  string `mapstructure:"bank_details"`
	DateFormat   string `mapstructure:"date_format"`
}

type StorageConfig struct {
	WorkDir       string        `mapstructure:"work_dir"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type MailConfig struct {
	Provider   string        `mapstructure:"provider"`
	From       string        `mapstructure:"from"`
	Recipients []string      `mapstructure:"recipients"`
	Subject    string        `mapstructure:"subject"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SMTP       SMTPConfig    `mapstructure:"smtp"`
	AWS        AWSConfig     `mapstructure:"aws"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
