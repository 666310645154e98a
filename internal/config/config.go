package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Auth      Auth      `yaml:"auth"`
	Events    Events    `yaml:"events"`
	Retention Retention `yaml:"retention"`
	S3        S3        `yaml:"s3"`
	Log       Log       `yaml:"log"`
}

// Server holds HTTP server configuration
type Server struct {
	Host           string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"30s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration
type Database struct {
	// Driver is either "postgres" or "sqlite"
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`

	// PostgreSQL
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	// SQLite (local development)
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"data/inbox.db"`

	// Connection pool settings
	MaxConns     int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns     int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`

	AutoMigrate bool `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Auth holds JWT verification settings
type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret-key"`
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER" env-default:"impulsa-api"`
}

// Events holds event bus configuration.
// Workers == 0 delivers events inline, before Publish returns.
type Events struct {
	Workers        int           `yaml:"workers" env:"EVENTS_WORKERS" env-default:"0"`
	QueueSize      int           `yaml:"queue_size" env:"EVENTS_QUEUE_SIZE" env-default:"256"`
	HandlerTimeout time.Duration `yaml:"handler_timeout" env:"EVENTS_HANDLER_TIMEOUT" env-default:"5s"`
}

// Retention holds the read-notification purge settings
type Retention struct {
	Enabled  bool          `yaml:"enabled" env:"RETENTION_ENABLED" env-default:"true"`
	Interval time.Duration `yaml:"interval" env:"RETENTION_INTERVAL" env-default:"1h"`
	MaxAge   time.Duration `yaml:"max_age" env:"RETENTION_MAX_AGE" env-default:"720h"`
}

// S3 holds S3/MinIO configuration used to resolve profile image keys
type S3 struct {
	Enabled         bool          `yaml:"enabled" env:"S3_ENABLED" env-default:"false"`
	Endpoint        string        `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string        `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string        `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string        `yaml:"bucket" env:"S3_BUCKET" env-default:"profiles"`
	Region          string        `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string        `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/profiles"`
	PresignTTL      time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"0s"`
}

// Log holds logger configuration
type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Validate checks cross-field constraints cleanenv cannot express
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Events.Workers < 0 {
		return fmt.Errorf("EVENTS_WORKERS must not be negative")
	}

	return nil
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
