package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"dev"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecret  string `envconfig:"JWT_SECRET"`

	StoreDriver   string `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"babagram"`

	// Postgres holds notifications and device tokens
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"require"`

	RedisURL string `envconfig:"REDIS_URL"`

	R2AccountID       string `envconfig:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `envconfig:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `envconfig:"R2_BUCKET_NAME"`
	R2PublicURL       string `envconfig:"R2_PUBLIC_URL"`

	FCMCredentialsFile string `envconfig:"FCM_CREDENTIALS_FILE"`
	FCMCredentialsJSON string `envconfig:"FCM_CREDENTIALS_JSON"`

	CounterMaxAttempts  int           `envconfig:"COUNTER_MAX_ATTEMPTS" default:"4"`
	IdempotencyTTL      time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"10m"`
	StoryTTL            time.Duration `envconfig:"STORY_TTL" default:"24h"`
	NotificationWorkers int           `envconfig:"NOTIFICATION_WORKERS" default:"2"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoadConfig reads .env (if present) and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.CounterMaxAttempts < 1 {
		return fmt.Errorf("config: COUNTER_MAX_ATTEMPTS must be at least 1")
	}
	if c.NotificationWorkers < 1 {
		c.NotificationWorkers = 1
	}
	return nil
}

// IsDev reports whether the service runs in a development environment.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "local"
}

// PostgresEnabled reports whether notification persistence is configured.
func (c *Config) PostgresEnabled() bool {
	return c.DBHost != "" && c.DBName != ""
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}
