package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SecretKey       string // shared HMAC secret for both token kinds
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OTPLength   int
	OTPCooldown time.Duration
	OTPTTL      time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPFromName string
	SMTPUsername string
	SMTPPassword string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	OTPChallenges string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			OTPChallenges: getEnv("DYNAMO_TABLE_OTP_CHALLENGES", "otp_challenges"),
		},

		SecretKey:       getEnv("SECRET_KEY", ""),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 2*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 24*time.Hour),

		OTPLength:   getEnvInt("OTP_LENGTH", 6),
		OTPCooldown: getEnvDuration("OTP_COOLDOWN", time.Minute),
		OTPTTL:      getEnvDuration("OTP_TTL", 5*time.Minute),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Aeronite"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
