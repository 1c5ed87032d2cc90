package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Config struct {
	Validator *validator.Validate
	SecretKey string
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port        string
	BaseURL     string
	Environment string

	OpenSearchURL    string
	OpenSearchUser   string
	OpenSearchPass   string
	EnableLogging    bool
	LoggingLevel     string
	LogRetentionDays int

	SessionBackend   string
	SessionPath      string
	SessionPrefix    string
	SessionCookie    string
	SessionIdleHours int

	DefaultCountry string
	UnitMeasure    string

	Provider         string
	ProviderURL      string
	ProviderUsername string
	ProviderPassword string
	ProviderTimeout  int

	WaitForFraudControl bool
	AnnulIfFrozen       bool
	FinalizeIfBooked    bool
	RejectStatuses      []string
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validator.New(),
			SecretKey: GetEnv("JWT_SECRET", uuid.New().String()),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:        GetEnv("APP_PORT", "9999"),
			BaseURL:     strings.TrimRight(GetEnv("APP_URL", "http://localhost:9999"), "/"),
			Environment: GetEnv("ENVIRONMENT", "development"),

			OpenSearchURL:    GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:   GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:   GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableLogging:    GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", true),
			LoggingLevel:     GetEnv("LOGGING_LEVEL", "info"),
			LogRetentionDays: GetIntEnv("LOG_RETENTION_DAYS", 30),

			SessionBackend:   strings.ToLower(GetEnv("SESSION_BACKEND", "memory")),
			SessionPath:      GetEnv("SESSION_SQLITE_PATH", "./data/sessions.db"),
			SessionPrefix:    GetEnv("SESSION_PREFIX", "signpay_"),
			SessionCookie:    GetEnv("SESSION_COOKIE", "signpay_session"),
			SessionIdleHours: GetIntEnv("SESSION_IDLE_HOURS", 48),

			DefaultCountry: strings.ToUpper(GetEnv("DEFAULT_COUNTRY", "SE")),
			UnitMeasure:    GetEnv("LINE_UNIT_MEASURE", "st"),

			Provider:         GetEnv("PAYMENT_PROVIDER", "resurs"),
			ProviderURL:      GetEnv("PROVIDER_URL", ""),
			ProviderUsername: GetEnv("PROVIDER_USERNAME", ""),
			ProviderPassword: GetEnv("PROVIDER_PASSWORD", ""),
			ProviderTimeout:  GetIntEnv("PROVIDER_TIMEOUT_SECONDS", 30),

			WaitForFraudControl: GetBoolEnv("WAIT_FOR_FRAUD_CONTROL", false),
			AnnulIfFrozen:       GetBoolEnv("ANNUL_IF_FROZEN", false),
			FinalizeIfBooked:    GetBoolEnv("FINALIZE_IF_BOOKED", false),
			RejectStatuses:      upper(GetListEnv("RECONCILE_REJECT_STATUSES", []string{"DENIED"})),
		}
	}
	return appConfigInstance
}

// ProviderSettings returns the configuration map handed to the payment provider client
func (c *AppConfig) ProviderSettings() map[string]string {
	return map[string]string{
		"baseURL":     c.ProviderURL,
		"username":    c.ProviderUsername,
		"password":    c.ProviderPassword,
		"timeout":     strconv.Itoa(c.ProviderTimeout),
		"environment": c.Environment,
	}
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetListEnv splits a comma separated environment variable, dropping empty items
func GetListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func upper(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.ToUpper(item)
	}
	return out
}
