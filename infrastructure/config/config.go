// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string

	// Email notifications
	SESFromEmail string
	BaseURL      string

	// Rate limiting (per user, fixed window)
	CommentRateLimit  int
	ReactionRateLimit int
	MessageRateLimit  int
	RateWindowSeconds int

	// CORS
	AllowedOrigins []string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics    bool
	EnableTracing    bool
	MetricsNamespace string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		DynamoDBTable: getEnv("TABLE_NAME", "letters"),

		SESFromEmail: getEnv("SES_FROM_EMAIL", "noreply@holdthatthought.family"),
		BaseURL:      getEnv("BASE_URL", "https://holdthatthought.family"),

		CommentRateLimit:  getEnvInt("COMMENT_RATE_LIMIT", 10),
		ReactionRateLimit: getEnvInt("REACTION_RATE_LIMIT", 60),
		MessageRateLimit:  getEnvInt("MESSAGE_RATE_LIMIT", 60),
		RateWindowSeconds: getEnvInt("RATE_WINDOW_SECONDS", 60),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Letters"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present.
func (c *Config) Validate() error {
	if c.DynamoDBTable == "" {
		return fmt.Errorf("TABLE_NAME is required")
	}
	if c.IsProduction() && c.SESFromEmail == "" {
		return fmt.Errorf("SES_FROM_EMAIL is required in production")
	}
	if c.RateWindowSeconds <= 0 {
		return fmt.Errorf("RATE_WINDOW_SECONDS must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvList gets a comma-separated environment variable with a default.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
