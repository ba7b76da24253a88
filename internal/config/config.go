package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr        string        `env:"API_ADDR"           envDefault:":8787"`
	DatabaseURL string        `env:"DATABASE_URL"       envDefault:"sqlite:./data/folio.db"`
	JWTSecret   string        `env:"FOLIO_JWT_SECRET"   envDefault:"folio-dev-secret"`
	AccessTTL   time.Duration `env:"FOLIO_ACCESS_TTL"   envDefault:"15m"`
	RefreshTTL  time.Duration `env:"FOLIO_REFRESH_TTL"  envDefault:"720h"`
	CORSOrigin  string        `env:"FOLIO_CORS_ORIGIN"  envDefault:"*"`
	// CookieSecure marks the session cookie Secure; turn off only for plain
	// http development.
	CookieSecure bool   `env:"FOLIO_COOKIE_SECURE" envDefault:"true"`
	JournalDir   string `env:"FOLIO_JOURNAL_DIR"   envDefault:"./data/journal"`
	Seed         bool   `env:"FOLIO_SEED"          envDefault:"false"`

	// Owner account
	AdminEmail        string `env:"FOLIO_ADMIN_EMAIL"`
	AdminName         string `env:"FOLIO_ADMIN_NAME"`
	AdminPasswordHash string `env:"FOLIO_ADMIN_PASSWORD_HASH"`
	AdminPassword     string `env:"FOLIO_ADMIN_PASSWORD"`

	// Optional services; empty disables them.
	RedisURL       string `env:"REDIS_URL"`
	MeiliURL       string `env:"MEILI_URL"`
	MeiliMasterKey string `env:"MEILI_MASTER_KEY"`

	// SMTP - contact form falls back to a mailto link if not configured
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT"      envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Folio"`
	ContactTo    string `env:"CONTACT_TO"`

	// Object storage for the published CV
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET"     envDefault:"folio"`
	S3UseSSL    bool   `env:"S3_USE_SSL"    envDefault:"false"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("FOLIO_JWT_SECRET must not be empty"))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("FOLIO_ACCESS_TTL must be positive"))
	}
	if c.RefreshTTL < c.AccessTTL {
		errs = append(errs, errors.New("FOLIO_REFRESH_TTL must not be shorter than FOLIO_ACCESS_TTL"))
	}
	if c.AdminEmail == "" {
		errs = append(errs, errors.New("FOLIO_ADMIN_EMAIL is required"))
	}
	if c.AdminPasswordHash == "" && c.AdminPassword == "" {
		errs = append(errs, errors.New("FOLIO_ADMIN_PASSWORD_HASH or FOLIO_ADMIN_PASSWORD is required"))
	}
	return errors.Join(errs...)
}
