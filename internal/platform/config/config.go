// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config reads gallery settings from the environment.

Variables are mapped with caarlos0/env. A local .env file is merged first
through joho/godotenv; variables already set in the process win.

	cfg, err := config.Load()

The API server reads [Config]. The gallery command line tool reads the much
smaller [CLIConfig] so it runs without a database.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Deployment environments accepted in ENVIRONMENT.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// # Configuration Schema

// Config is the API server configuration. Read-only after [Load].
type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// AppURL is the public origin used to build registry install URLs.
	AppURL string `env:"APP_URL" envDefault:"http://localhost:3000"`

	// PostgreSQL
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS"   envDefault:"20"`
	DBMinConns    int32  `env:"DB_MIN_CONNS"   envDefault:"2"`

	// Redis query cache
	RedisURL string        `env:"REDIS_URL,required,notEmpty"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// AnalyticsRefreshInterval paces the view count materialized view refresh.
	AnalyticsRefreshInterval time.Duration `env:"ANALYTICS_REFRESH_INTERVAL" envDefault:"5m"`

	// Publisher tokens are issued elsewhere; this service only verifies them.
	JWTPubKeyPath string `env:"JWT_PUBLIC_KEY_PATH,required,notEmpty"`

	// Remote Tailwind compilation service
	CSSCompileURL     string        `env:"CSS_COMPILE_URL,required,notEmpty"`
	CSSCompileTimeout time.Duration `env:"CSS_COMPILE_TIMEOUT" envDefault:"20s"`

	// Object storage (Cloudflare R2 or any S3-compatible endpoint)
	S3Bucket          string `env:"S3_BUCKET"  envDefault:"components-code"`
	S3Region          string `env:"S3_REGION"  envDefault:"auto"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`

	// AllowedOriginDomain admits the domain and every subdomain of it.
	AllowedOriginDomain string `env:"ALLOWED_ORIGIN_DOMAIN" envDefault:"21st.dev"`

	// ExtraOrigins lists exact origins, e.g. preview deployments.
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// CLIConfig is what the gallery command line tool reads.
type CLIConfig struct {
	AppURL            string        `env:"APP_URL"             envDefault:"http://localhost:3000"`
	CSSCompileURL     string        `env:"CSS_COMPILE_URL"`
	CSSCompileTimeout time.Duration `env:"CSS_COMPILE_TIMEOUT" envDefault:"20s"`
}

// # Configuration Loading

// Load reads and validates the server configuration.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCLI reads the command line configuration. Nothing in it is required.
func LoadCLI() (*CLIConfig, error) {
	cfg := &CLIConfig{}
	if err := parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: failed to read .env file: %w", err)
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	var problems []error
	if !slices.Contains([]string{EnvDevelopment, EnvStaging, EnvProduction}, c.Environment) {
		problems = append(problems, fmt.Errorf("ENVIRONMENT %q is not one of development, staging, production", c.Environment))
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		problems = append(problems, fmt.Errorf("DB_MIN_CONNS=%d and DB_MAX_CONNS=%d are inconsistent", c.DBMinConns, c.DBMaxConns))
	}
	if parsed, err := url.Parse(c.AppURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, fmt.Errorf("APP_URL %q is not an absolute URL", c.AppURL))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %w", errors.Join(problems...))
	}
	return nil
}

// # Environment Helpers

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// OriginAllowed reports whether a browser origin may call the API outside
// development: the configured domain, its subdomains, or an exact extra origin.
func (c *Config) OriginAllowed(origin string) bool {
	for _, extra := range c.ExtraOrigins {
		if strings.TrimSpace(extra) == origin {
			return true
		}
	}
	if c.AllowedOriginDomain == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme != "https" {
		return false
	}
	host := parsed.Hostname()
	return host == c.AllowedOriginDomain || strings.HasSuffix(host, "."+c.AllowedOriginDomain)
}
