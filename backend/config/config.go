package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret  string
	JWTTTL     time.Duration
	ServerPort string

	CORSOrigins     string
	AuthRateLimit   int
	AuthRateWindow  time.Duration
	ShutdownTimeout time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIURL        string
	Currency            string
	FrontendURL         string

	SendGridAPIKey string
	MailFrom       string

	ReminderSchedule string

	StorageDriver   string
	UploadDir       string
	PublicUploadURL string
	OSSEndpoint     string
	OSSAccessKey    string
	OSSSecretKey    string
	OSSBucket       string
	OSSPrefix       string
	MaxUploadMB     int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "apollo"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		JWTTTL:     time.Duration(getEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
		ServerPort: getEnv("SERVER_PORT", "8080"),

		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
		AuthRateLimit:   getEnvInt("AUTH_RATE_LIMIT", 15),
		AuthRateWindow:  getEnvDuration("AUTH_RATE_WINDOW", 15*time.Minute),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeAPIURL:        getEnv("STRIPE_API_URL", "https://api.stripe.com"),
		Currency:            strings.ToLower(getEnv("CURRENCY", "usd")),
		FrontendURL:         strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@apollo.local"),

		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 9 * * *"),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		PublicUploadURL: strings.TrimRight(getEnv("PUBLIC_UPLOAD_URL", "/uploads"), "/"),
		OSSEndpoint:     getEnv("OSS_ENDPOINT", ""),
		OSSAccessKey:    getEnv("OSS_ACCESS_KEY_ID", ""),
		OSSSecretKey:    getEnv("OSS_ACCESS_KEY_SECRET", ""),
		OSSBucket:       getEnv("OSS_BUCKET", ""),
		OSSPrefix:       strings.Trim(getEnv("OSS_PREFIX", "apollo"), "/"),
		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", 200),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, без которых сервер не стартует
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.StorageDriver {
	case "local", "oss":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.StorageDriver == "oss" && (c.OSSEndpoint == "" || c.OSSBucket == "") {
		return errors.New("OSS_ENDPOINT and OSS_BUCKET are required for the oss storage driver")
	}
	return nil
}

func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
