package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode           Mode          `env:"MODE" envDefault:"offline"`
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	PublicURL      string        `env:"PUBLIC_URL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"` // sqlite|postgres
	DBDSN    string `env:"DB_DSN"`

	BlobBasePath string `env:"BLOB_BASE_PATH" envDefault:"./data"`

	EnableLocalAuth bool          `env:"ENABLE_LOCAL_AUTH" envDefault:"true"`
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"8h"`

	CORSOriginsOnline  []string `env:"CORS_ORIGINS_ONLINE" envSeparator:"," envDefault:"https://academy.mindengage.ai"`
	CORSOriginsOffline []string `env:"CORS_ORIGINS_OFFLINE" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3010"`

	LogMode      string `env:"LOG_MODE" envDefault:"dev"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogRedaction bool   `env:"LOG_REDACTION_ENABLED" envDefault:"true"`

	// mail; without an API key notifications are only logged
	SendGridAPIKey string   `env:"SENDGRID_API_KEY"`
	MailFrom       string   `env:"MAIL_FROM" envDefault:"academy@localhost"`
	MailFromName   string   `env:"MAIL_FROM_NAME" envDefault:"MindEngage Academy"`
	AdminEmails    []string `env:"ADMIN_EMAILS" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"academy.events"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporter string `env:"OTEL_EXPORTER" envDefault:"stdout"` // stdout|otlp
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"academy-gateway"`

	CertPrefix string `env:"CERT_PREFIX" envDefault:"ACAD"`
	CertFont   string `env:"CERT_FONT"` // optional TTF, Go Regular otherwise
	CertFooter string `env:"CERT_FOOTER" envDefault:"MindEngage Academy"`

	SiteID string `env:"SITE_ID" envDefault:"local"`
}

// FromEnv parses and validates the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown MODE %q", c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.Mode == ModeOnline && (c.JWTSecret == "" || c.JWTSecret == "dev-secret-change-me") {
		return fmt.Errorf("config: JWT_SECRET must be set in online mode")
	}
	switch strings.ToLower(c.OTelExporter) {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("config: unknown OTEL_EXPORTER %q", c.OTelExporter)
	}
	return nil
}

// CORSOrigins returns the allowed origins for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}
