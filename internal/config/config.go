package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the reservation engine
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Booking  BookingConfig
	Payment  PaymentConfig
	Notify   NotifyConfig
	CORS     CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// BookingConfig holds hold-and-settlement timing configuration
type BookingConfig struct {
	// HoldDuration is how long a pay-at-office hold lives before expiring.
	HoldDuration time.Duration
	// DepartureCutoff is the window before departure inside which no hold
	// may still be alive; a hold always expires at least this far ahead of
	// the trip's departure time.
	DepartureCutoff time.Duration
	// SweepInterval is how often the expiry sweeper scans for stale holds.
	SweepInterval time.Duration
	// PaymentTimeout bounds the synchronous gateway charge on the PayNow path.
	PaymentTimeout time.Duration
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	Environment   string // "sandbox" or "production"
	MerchantKey   string
	MerchantToken string // SECRET - never expose to client
	ReturnURL     string
	WebhookURL    string
}

// NotifyConfig holds notification dispatch configuration
type NotifyConfig struct {
	Mode        string // "log" or "http"
	EndpointURL string
	APIKey      string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 300*time.Second),
		},
		Booking: BookingConfig{
			HoldDuration:    getEnvAsDuration("BOOKING_HOLD_DURATION", 2*time.Hour),
			DepartureCutoff: getEnvAsDuration("BOOKING_DEPARTURE_CUTOFF", 2*time.Hour),
			SweepInterval:   getEnvAsDuration("BOOKING_SWEEP_INTERVAL", 60*time.Second),
			PaymentTimeout:  getEnvAsDuration("BOOKING_PAYMENT_TIMEOUT", 30*time.Second),
		},
		Payment: PaymentConfig{
			Environment:   getEnv("PAYMENT_ENVIRONMENT", "sandbox"),
			MerchantKey:   getEnv("PAYMENT_MERCHANT_KEY", ""),
			MerchantToken: getEnv("PAYMENT_MERCHANT_TOKEN", ""),
			ReturnURL:     getEnv("PAYMENT_RETURN_URL", ""),
			WebhookURL:    getEnv("PAYMENT_WEBHOOK_URL", ""),
		},
		Notify: NotifyConfig{
			Mode:        getEnv("NOTIFY_MODE", "log"),
			EndpointURL: getEnv("NOTIFY_ENDPOINT_URL", ""),
			APIKey:      getEnv("NOTIFY_API_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Authorization"}),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks that required configuration is present and coherent
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Booking.HoldDuration <= 0 {
		return fmt.Errorf("BOOKING_HOLD_DURATION must be positive")
	}
	if c.Booking.DepartureCutoff < 0 {
		return fmt.Errorf("BOOKING_DEPARTURE_CUTOFF must not be negative")
	}
	if c.Booking.SweepInterval <= 0 {
		return fmt.Errorf("BOOKING_SWEEP_INTERVAL must be positive")
	}
	if c.Server.Environment == "production" && c.Payment.MerchantToken == "" {
		return fmt.Errorf("PAYMENT_MERCHANT_TOKEN is required in production")
	}
	return nil
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a fallback default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration ("90s", "2h")
// with a fallback default; bare integers are treated as seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// getEnvAsSlice gets an environment variable as a comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
