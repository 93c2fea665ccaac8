// internal/infra/config/config.go
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the optional YAML file.
const EnvConfigPath = "STOREFRONT_CONFIG"

const (
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	// DriverMemory keeps everything in process; for demos and tests.
	DriverMemory = "memory"

	LocalSQLite = "sqlite"
	LocalRedis  = "redis"
	LocalMemory = "memory"
)

// Config holds every runtime setting. Precedence: defaults, then the YAML
// file, then environment variables.
type Config struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`

	Backend  Backend `yaml:"backend"`
	Auth     Auth    `yaml:"auth"`
	Storage  Storage `yaml:"storage"`
	Local    Local   `yaml:"local"`
	HTTP     HTTP    `yaml:"http"`
	Mail     Mail    `yaml:"mail"`
	LogLevel string  `yaml:"log_level"`
	Dev      bool    `yaml:"dev"`
}

type Backend struct {
	Driver        string        `yaml:"driver"`
	PostgresDSN   string        `yaml:"postgres_dsn"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type Auth struct {
	WebAPIKey      string `yaml:"web_api_key"`
	SecureTokenURL string `yaml:"secure_token_url"`
}

type Storage struct {
	SlipBucket         string `yaml:"slip_bucket"`
	ProductImageBucket string `yaml:"product_image_bucket"`
	PublicBaseURL      string `yaml:"public_base_url"`
}

type Local struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"`
	RedisURL  string `yaml:"redis_url"`
	Namespace string `yaml:"namespace"`
}

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RatePerSecond  float64  `yaml:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst"`
}

type Mail struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	From           string `yaml:"from"`
	FromName       string `yaml:"from_name"`
	ShopBaseURL    string `yaml:"shop_base_url"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Backend: Backend{
			Driver:        DriverFirestore,
			CallTimeout:   20 * time.Second,
			RetryAttempts: 3,
			RetryInterval: 300 * time.Millisecond,
		},
		Storage: Storage{
			SlipBucket:         "slips",
			ProductImageBucket: "product-images",
		},
		Local: Local{
			Driver:    LocalSQLite,
			Path:      "storefront.db",
			Namespace: "storefront",
		},
		HTTP: HTTP{
			Addr:           "127.0.0.1:8787",
			AllowedOrigins: []string{"http://localhost:3000"},
			RatePerSecond:  20,
			RateBurst:      40,
		},
		Mail:     Mail{FromName: "Ayyooya"},
		LogLevel: "info",
	}
}

// Load reads path (or $STOREFRONT_CONFIG when path is empty) and applies
// environment overrides. A missing file is only an error when it was
// named explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
		explicit = path != ""
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.ProjectID = getenvDefault("GCP_PROJECT_ID", getenvDefault("GOOGLE_CLOUD_PROJECT", c.ProjectID))
	c.CredentialsFile = getenvDefault("GOOGLE_APPLICATION_CREDENTIALS", c.CredentialsFile)

	c.Backend.Driver = getenvDefault("STOREFRONT_BACKEND", c.Backend.Driver)
	c.Backend.PostgresDSN = getenvDefault("DATABASE_URL", c.Backend.PostgresDSN)
	c.Backend.CallTimeout = getenvDuration("STOREFRONT_CALL_TIMEOUT", c.Backend.CallTimeout)

	c.Auth.WebAPIKey = getenvDefault("FIREBASE_WEB_API_KEY", c.Auth.WebAPIKey)

	c.Storage.SlipBucket = getenvDefault("SLIP_BUCKET", c.Storage.SlipBucket)
	c.Storage.ProductImageBucket = getenvDefault("PRODUCT_IMAGE_BUCKET", c.Storage.ProductImageBucket)

	c.Local.Driver = getenvDefault("STOREFRONT_LOCAL", c.Local.Driver)
	c.Local.Path = getenvDefault("STOREFRONT_LOCAL_PATH", c.Local.Path)
	c.Local.RedisURL = getenvDefault("REDIS_URL", c.Local.RedisURL)

	c.HTTP.Addr = getenvDefault("STOREFRONT_ADDR", c.HTTP.Addr)
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_ALLOWED_ORIGINS")); v != "" {
		c.HTTP.AllowedOrigins = splitCSV(v)
	}

	c.Mail.SendGridAPIKey = getenvDefault("SENDGRID_API_KEY", c.Mail.SendGridAPIKey)
	c.Mail.From = getenvDefault("SENDGRID_FROM", c.Mail.From)
	c.Mail.ShopBaseURL = getenvDefault("SHOP_BASE_URL", c.Mail.ShopBaseURL)

	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case DriverFirestore, DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Backend.PostgresDSN) == "" {
			return errors.New("config: backend.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown backend driver %q", c.Backend.Driver)
	}
	switch c.Local.Driver {
	case LocalSQLite, LocalMemory:
	case LocalRedis:
		if strings.TrimSpace(c.Local.RedisURL) == "" {
			return errors.New("config: local.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown local store %q", c.Local.Driver)
	}
	if c.Backend.CallTimeout <= 0 {
		return errors.New("config: backend.call_timeout must be positive")
	}
	return nil
}

// Resolver turns a secret reference into its value.
type Resolver interface {
	Resolve(ctx context.Context, v string) (string, error)
}

// Secrets returns pointers to every field that may hold a secret reference.
func (c *Config) Secrets() []*string {
	return []*string{
		&c.Backend.PostgresDSN,
		&c.Auth.WebAPIKey,
		&c.Mail.SendGridAPIKey,
		&c.Local.RedisURL,
	}
}

// ResolveSecrets replaces secret references in place.
func (c *Config) ResolveSecrets(ctx context.Context, r Resolver) error {
	for _, p := range c.Secrets() {
		v, err := r.Resolve(ctx, *p)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*p = v
	}
	return nil
}

// ---- helpers ----

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitCSV(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
