package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Shared number answered before a tenant is known (onboarding).
	CentralNumber string

	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWebhookSecret string

	OpenAIAPIKey string
	OpenAIModel  string

	// Bound on the agent tool-calling sub-loop per inbound message.
	AgentMaxToolRounds int

	SlotIntervalMinutes int
	AbandonTimeout      time.Duration
	SweepInterval       time.Duration
	ConversationLockTTL time.Duration

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CentralNumber: strings.TrimSpace(getEnv("CENTRAL_WHATSAPP_NUMBER", "")),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		AgentMaxToolRounds: getEnvAsInt("AGENT_MAX_TOOL_ROUNDS", 5),

		SlotIntervalMinutes: getEnvAsInt("SLOT_INTERVAL_MINUTES", 30),
		AbandonTimeout:      getEnvAsDuration("FLOW_ABANDON_TIMEOUT", 30*time.Minute),
		SweepInterval:       getEnvAsDuration("FLOW_SWEEP_INTERVAL", 5*time.Minute),
		ConversationLockTTL: getEnvAsDuration("CONVERSATION_LOCK_TTL", 30*time.Second),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
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
