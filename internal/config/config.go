package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Logging      LoggingConfig      `yaml:"logging"`
	Institution  InstitutionConfig  `yaml:"institution"`
	Fees         FeesConfig         `yaml:"fees"`
	Notification NotificationConfig `yaml:"notification"`
	Payment      PaymentConfig      `yaml:"payment"`
	Storage      StorageConfig      `yaml:"storage"`
	Redis        RedisConfig        `yaml:"redis"`
	CORS         CORSConfig         `yaml:"cors"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Rollbar      RollbarConfig      `yaml:"rollbar"`
	Seed         SeedConfig         `yaml:"seed"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"SERVER_PORT"`
	Mode string `yaml:"mode" env:"SERVER_MODE"`
	// SiteURL is the public origin used in links sent to applicants.
	SiteURL string `yaml:"site_url" env:"SERVER_SITE_URL"`
}

type DatabaseConfig struct {
	// Driver is either "postgres" or "memory".
	Driver          string `yaml:"driver" env:"DB_DRIVER"`
	Host            string `yaml:"host" env:"DB_HOST"`
	Port            string `yaml:"port" env:"DB_PORT"`
	User            string `yaml:"user" env:"DB_USER"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
}

type JWTConfig struct {
	Secret                string `yaml:"secret" env:"JWT_SECRET"`
	AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
	Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type InstitutionConfig struct {
	Name        string `yaml:"name" env:"INSTITUTION_NAME"`
	EmailDomain string `yaml:"email_domain" env:"INSTITUTION_EMAIL_DOMAIN"`
	PortalURL   string `yaml:"portal_url" env:"INSTITUTION_PORTAL_URL"`
}

// FeesConfig holds whole-rupee amounts shown at stage 4 and charged at stage 5.
type FeesConfig struct {
	AdmissionFee      int64 `yaml:"admission_fee" env:"FEES_ADMISSION"`
	SemesterFee       int64 `yaml:"semester_fee" env:"FEES_SEMESTER"`
	StudentCardFee    int64 `yaml:"student_card_fee" env:"FEES_STUDENT_CARD"`
	TransportFee      int64 `yaml:"transport_fee" env:"FEES_TRANSPORT"`
	DurationSemesters int   `yaml:"duration_semesters" env:"FEES_DURATION_SEMESTERS"`
	TotalCredits      int   `yaml:"total_credits" env:"FEES_TOTAL_CREDITS"`
}

type NotificationConfig struct {
	// Provider is one of "smtp", "sendgrid" or "log".
	Provider  string `yaml:"provider" env:"NOTIFY_PROVIDER"`
	Timeout   string `yaml:"timeout" env:"NOTIFY_TIMEOUT"`
	FromName  string `yaml:"from_name" env:"NOTIFY_FROM_NAME"`
	FromEmail string `yaml:"from_email" env:"NOTIFY_FROM_EMAIL"`
	SMTP      struct {
		Host     string `yaml:"host" env:"SMTP_HOST"`
		Port     int    `yaml:"port" env:"SMTP_PORT"`
		Username string `yaml:"username" env:"SMTP_USERNAME"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
		UseTLS   bool   `yaml:"use_tls" env:"SMTP_USE_TLS"`
	} `yaml:"smtp"`
	SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
}

type PaymentConfig struct {
	// Provider is "simulated" or "midtrans".
	Provider            string `yaml:"provider" env:"PAYMENT_PROVIDER"`
	Timeout             string `yaml:"timeout" env:"PAYMENT_TIMEOUT"`
	MidtransServerKey   string `yaml:"midtrans_server_key" env:"MIDTRANS_SERVER_KEY"`
	MidtransEnvironment string `yaml:"midtrans_environment" env:"MIDTRANS_ENVIRONMENT"`
}

type StorageConfig struct {
	// Provider is "local" or "gcs".
	Provider       string `yaml:"provider" env:"STORAGE_PROVIDER"`
	LocalPath      string `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
	GCSBucket      string `yaml:"gcs_bucket" env:"STORAGE_GCS_BUCKET"`
	GCSCredentials string `yaml:"gcs_credentials_file" env:"STORAGE_GCS_CREDENTIALS_FILE"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"STORAGE_MAX_UPLOAD_BYTES"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	TTL      string `yaml:"ttl" env:"REDIS_TTL"`
}

type CORSConfig struct {
	// AllowedOrigins is a comma separated list.
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"TRACING_ENABLED"`
	Exporter    string  `yaml:"exporter" env:"TRACING_EXPORTER"`
	Endpoint    string  `yaml:"endpoint" env:"TRACING_ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio" env:"TRACING_SAMPLE_RATIO"`
	ServiceName string  `yaml:"service_name" env:"TRACING_SERVICE_NAME"`
}

type RollbarConfig struct {
	Token       string `yaml:"token" env:"ROLLBAR_TOKEN"`
	Environment string `yaml:"environment" env:"ROLLBAR_ENVIRONMENT"`
}

type SeedConfig struct {
	AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
}

// LoadConfig loads configuration from a file, an optional .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.SiteURL = "http://localhost:8080"

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "admission"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "8h"
	config.JWT.Issuer = "admission.campusgpt"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Institution.Name = "Superior University"
	config.Institution.EmailDomain = "superior.edu.pk"
	config.Institution.PortalURL = "http://localhost:8080"

	config.Fees.AdmissionFee = 15000
	config.Fees.SemesterFee = 75000
	config.Fees.StudentCardFee = 5000
	config.Fees.TransportFee = 10000
	config.Fees.DurationSemesters = 8
	config.Fees.TotalCredits = 120

	config.Notification.Provider = "log"
	config.Notification.Timeout = "5s"
	config.Notification.FromName = "CampusGPT Admissions Team"
	config.Notification.FromEmail = "admissions@superior.edu.pk"
	config.Notification.SMTP.Port = 587

	config.Payment.Provider = "simulated"
	config.Payment.Timeout = "15s"
	config.Payment.MidtransEnvironment = "sandbox"

	config.Storage.Provider = "local"
	config.Storage.LocalPath = "uploads"
	config.Storage.MaxUploadBytes = 5 << 20

	config.Redis.TTL = "10m"

	config.CORS.AllowedOrigins = "*"

	config.Tracing.Exporter = "stdout"
	config.Tracing.SampleRatio = 1.0
	config.Tracing.ServiceName = "admission-api"

	config.Rollbar.Environment = "development"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.ParseDuration(config.Notification.Timeout); err != nil {
		return fmt.Errorf("invalid notification timeout: %w", err)
	}

	switch config.Notification.Provider {
	case "smtp", "sendgrid", "log":
	default:
		return fmt.Errorf("unsupported notification provider %q", config.Notification.Provider)
	}

	switch config.Payment.Provider {
	case "simulated":
	case "midtrans":
		if config.Payment.MidtransServerKey == "" {
			return fmt.Errorf("midtrans server key is required for the midtrans payment provider")
		}
	default:
		return fmt.Errorf("unsupported payment provider %q", config.Payment.Provider)
	}

	switch config.Storage.Provider {
	case "local":
	case "gcs":
		if config.Storage.GCSBucket == "" {
			return fmt.Errorf("gcs bucket is required for the gcs storage provider")
		}
	default:
		return fmt.Errorf("unsupported storage provider %q", config.Storage.Provider)
	}

	if config.Fees.SemesterFee < 0 || config.Fees.AdmissionFee < 0 || config.Fees.StudentCardFee < 0 || config.Fees.TransportFee < 0 {
		return fmt.Errorf("fees cannot be negative")
	}

	if config.Institution.EmailDomain == "" {
		return fmt.Errorf("institution email domain is required")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// Origins splits the comma separated CORS origin list.
func (c CORSConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
