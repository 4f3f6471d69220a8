package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	StoreBackend  string // "dynamo" | "mongo"
	MongoURI      string
	MongoDatabase string

	CacheBackend string // "redis" | "dynamo"
	RedisURL     string
	RedisTLS     bool

	// OTPTTL bounds the life of a pending registration and each issued code.
	// Every write to a pending registration resets it.
	OTPTTL time.Duration
	// ExposeOTP returns issued codes in signup/resend responses. Never honoured in production.
	ExposeOTP bool

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSEnabled bool
	SNSRegion  string

	StaticDir      string
	StaticS3Bucket string // when set, static assets are served from this bucket instead of StaticDir

	AllowedOrigins []string // CORS allowed origins
	// TrustProxy keys rate limits on the proxy-appended X-Forwarded-For hop.
	// Leave false unless the service only receives traffic through a proxy.
	TrustProxy bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users string
	Cache string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users: getEnv("DYNAMO_TABLE_USERS", "users"),
			Cache: getEnv("DYNAMO_TABLE_CACHE", "registration_cache"),
		},

		StoreBackend:  getEnv("STORE_BACKEND", "dynamo"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "internDB"),

		CacheBackend: getEnv("CACHE_BACKEND", "redis"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLS:     getEnvBool("REDIS_TLS", false),

		OTPTTL:    time.Duration(getEnvPositiveInt("OTP_TTL_SECONDS", 300)) * time.Second,
		ExposeOTP: getEnvBool("EXPOSE_OTP", false),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSEnabled: getEnvBool("SNS_ENABLED", false),
		SNSRegion:  getEnv("SNS_REGION", "us-east-1"),

		StaticDir:      getEnv("STATIC_DIR", "public"),
		StaticS3Bucket: getEnv("STATIC_S3_BUCKET", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),
	}
	if cfg.IsProduction() {
		cfg.ExposeOTP = false
	}
	return cfg
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
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

// getEnvPositiveInt is getEnvInt that also rejects zero and negative values.
func getEnvPositiveInt(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
