package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	CORSOrigins       string `mapstructure:"CORS_ORIGINS"`

	// Appointment store.
	StoreBackend            string `mapstructure:"STORE_BACKEND"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	DatabaseName            string `mapstructure:"DATABASE_NAME"`
	PostgresDSN             string `mapstructure:"POSTGRES_DSN"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Booking engine.
	BookingTimezone       string        `mapstructure:"BOOKING_TIMEZONE"`
	BookingTxnMaxAttempts int           `mapstructure:"BOOKING_TXN_MAX_ATTEMPTS"`
	BookingTxnTimeout     time.Duration `mapstructure:"BOOKING_TXN_TIMEOUT"`
	BookingTxnBackoff     time.Duration `mapstructure:"BOOKING_TXN_BACKOFF"`
	IdempotencyTTL        time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	PendingExpiryEnabled  bool          `mapstructure:"PENDING_EXPIRY_ENABLED"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("STORE_BACKEND", BackendMongo)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "procounsellor")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)

	v.SetDefault("BOOKING_TIMEZONE", "UTC")
	v.SetDefault("BOOKING_TXN_MAX_ATTEMPTS", 5)
	v.SetDefault("BOOKING_TXN_TIMEOUT", "5s")
	v.SetDefault("BOOKING_TXN_BACKOFF", "50ms")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("PENDING_EXPIRY_ENABLED", true)
}

// Load reads configuration from an optional .env file, an optional config.yaml and
// the environment, in increasing order of precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables only")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig loads the configuration into AppConfig and exits on failure.
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Validate checks that the selected backend is configured and the booking settings are sane.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.DatabaseURL == "" || c.DatabaseName == "" {
			errs = append(errs, errors.New("mongo backend requires DATABASE_URL and DATABASE_NAME"))
		}
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("firestore backend requires FIREBASE_PROJECT_ID"))
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres backend requires POSTGRES_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.MaxRequestsPerMin <= 0 {
		errs = append(errs, errors.New("MAX_REQUESTS_PER_MIN must be positive"))
	}
	if c.BookingTxnMaxAttempts < 1 {
		errs = append(errs, errors.New("BOOKING_TXN_MAX_ATTEMPTS must be at least 1"))
	}
	if c.BookingTxnTimeout <= 0 {
		errs = append(errs, errors.New("BOOKING_TXN_TIMEOUT must be positive"))
	}
	if c.BookingTxnBackoff < 0 {
		errs = append(errs, errors.New("BOOKING_TXN_BACKOFF must not be negative"))
	}
	if _, err := c.BookingLocation(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BookingLocation resolves the timezone slots are evaluated in.
func (c Config) BookingLocation() (*time.Location, error) {
	if c.BookingTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.BookingTimezone, err)
	}
	return loc, nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return AppConfig.IsProduction()
}
