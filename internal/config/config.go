package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	ClinicName  string
	AdminToken  string
	CORSOrigins []string

	// Automation webhook (n8n) endpoints
	WebhookBaseURL      string
	WebhookBookingPath  string
	WebhookLookupPath   string
	WebhookOccupiedPath string
	WebhookTimeout      time.Duration

	// Scheduling
	SlotCatalog            []string
	ClinicTimezone         string
	ClinicTimezoneFallback string
	BookingWindowDays      int
	LookaheadDays          int
	MaxConcurrentLookups   int
	InsurancePlans         []string

	// Occupied-slot cache
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	OccupiedCacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ClinicName:  getEnv("CLINIC_NAME", "Clínica"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		WebhookBaseURL:      strings.TrimRight(getEnv("WEBHOOK_BASE_URL", "http://localhost:5678/webhook"), "/"),
		WebhookBookingPath:  getEnv("WEBHOOK_BOOKING_PATH", "/agendar-consulta"),
		WebhookLookupPath:   getEnv("WEBHOOK_LOOKUP_PATH", "/consultar-agendamento"),
		WebhookOccupiedPath: getEnv("WEBHOOK_OCCUPIED_PATH", "/consultar-horarios-ocupados"),
		WebhookTimeout:      getEnvAsDuration("WEBHOOK_TIMEOUT", 10*time.Second),

		SlotCatalog:            getEnvAsList("SLOT_CATALOG", []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}),
		ClinicTimezone:         getEnv("CLINIC_TIMEZONE", ""),
		ClinicTimezoneFallback: getEnv("CLINIC_TIMEZONE_FALLBACK", "America/Campo_Grande"),
		BookingWindowDays:      getEnvAsInt("BOOKING_WINDOW_DAYS", 90),
		LookaheadDays:          getEnvAsInt("LOOKAHEAD_DAYS", 14),
		MaxConcurrentLookups:   getEnvAsInt("MAX_CONCURRENT_LOOKUPS", 14),
		InsurancePlans:         getEnvAsList("INSURANCE_PLANS", []string{"Particular"}),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		OccupiedCacheTTL: getEnvAsDuration("OCCUPIED_CACHE_TTL", 0),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
