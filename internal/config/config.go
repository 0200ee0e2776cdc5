package config

import (
	"time"

	"booknest_backend/pkg/utils"

	"github.com/joho/godotenv"
)

// Config carries every deployment-supplied setting. It is built once in main
// and handed to the router; nothing below the router reads the environment.
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	CORSAllowedOrigins string

	JWTSecret string
	// TokenTTL is the default access-token lifetime. Individual issuance
	// calls may override it.
	TokenTTL time.Duration

	GoogleClientID string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3Endpoint     string
	S3UsePathStyle bool
	S3PublicURL    string
}

// Load reads configuration from a .env file (when present) and the process
// environment. Missing keys fall back to development defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		utils.LogInfo("No .env file found, using process environment")
	}

	ttlMinutes, err := utils.StrToInt64(utils.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES", "43200"))
	if err != nil || ttlMinutes <= 0 {
		ttlMinutes = 43200 // 30 days
	}

	return Config{
		Port: utils.Getenv("PORT", "8080"),

		DBHost:     utils.Getenv("DB_HOST", "localhost"),
		DBPort:     utils.Getenv("DB_PORT", "5432"),
		DBUser:     utils.Getenv("DB_USER", "booknest_user"),
		DBPassword: utils.Getenv("DB_PASSWORD", "booknest_password"),
		DBName:     utils.Getenv("DB_NAME", "booknest_db"),
		DBSSLMode:  utils.Getenv("DB_SSLMODE", "disable"),

		CORSAllowedOrigins: utils.Getenv("CORS_ALLOWED_ORIGINS", ""),

		JWTSecret: utils.Getenv("SECRET_KEY", "fallback-secret-key-for-dev-only"),
		TokenTTL:  time.Duration(ttlMinutes) * time.Minute,

		GoogleClientID: utils.Getenv("GOOGLE_CLIENT_ID", ""),

		SMTPHost:     utils.Getenv("SMTP_HOST", "localhost"),
		SMTPPort:     utils.Getenv("SMTP_PORT", "587"),
		SMTPUsername: utils.Getenv("SMTP_USERNAME", ""),
		SMTPPassword: utils.Getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     utils.Getenv("SMTP_FROM", "no-reply@booknest.local"),

		S3Region:       utils.Getenv("S3_REGION", "us-east-1"),
		S3Bucket:       utils.Getenv("S3_BUCKET", "booknest-files"),
		S3AccessKey:    utils.Getenv("S3_ACCESS_KEY", ""),
		S3SecretKey:    utils.Getenv("S3_SECRET_KEY", ""),
		S3Endpoint:     utils.Getenv("S3_ENDPOINT", ""),
		S3UsePathStyle: utils.Getenv("S3_USE_PATH_STYLE", "") == "true",
		S3PublicURL:    utils.Getenv("S3_PUBLIC_URL", ""),
	}
}
