package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Inbound API authentication
	JWTSecret      string
	APITokenExpiry time.Duration

	APIRateLimitInterval time.Duration
	APIRateLimitBurst    int
	MaxUploadSizeBytes   int64

	// EIMS gateway
	EIMSBaseURL           string
	EIMSAPIVersion        string
	EIMSTimeout           time.Duration
	EIMSMaxRetries        int
	EIMSRateLimitMaxDelay time.Duration
	EIMSTokenExpiryMargin time.Duration
	EIMSRefreshTokenTTL   time.Duration

	// Seller fiscal identity, seeded into the settings store at startup
	SellerTIN        string
	SellerLegalName  string
	SellerPhone      string
	SellerEmail      string
	SellerRegion     string
	SellerCity       string
	SystemNumber     string
	SystemType       string
	EIMSClientID     string
	EIMSClientSecret string
	EIMSAPIKey       string

	SettingsEncryptionKey []byte

	VATRate               decimal.Decimal
	DefaultCommissionRate decimal.Decimal
	Currency              string

	EmailServiceProvider string

	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	MailgunDomain        string
	MailgunPrivateAPIKey string

	SenderEmail string
	SenderName  string
	AlertEmail  string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "change-me-to-a-long-random-secret-of-at-least-32-bytes")
	if jwtSecret == "change-me-to-a-long-random-secret-of-at-least-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	encryptionKey := getEnv("SETTINGS_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	if encryptionKey == "0123456789abcdef0123456789abcdef" {
		log.Println("WARNING: Using default SETTINGS_ENCRYPTION_KEY. EIMS credentials at rest are not protected.")
	}
	if len(encryptionKey) != 32 {
		log.Fatalf("FATAL: SETTINGS_ENCRYPTION_KEY must be exactly 32 bytes long. Current length: %d", len(encryptionKey))
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./taxiye_eims.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:      jwtSecret,
		APITokenExpiry: getEnvAsDuration("API_TOKEN_EXPIRY", 30*24*time.Hour),

		APIRateLimitInterval: getEnvAsDuration("API_RATE_LIMIT_INTERVAL", 100*time.Millisecond),
		APIRateLimitBurst:    getEnvAsInt("API_RATE_LIMIT_BURST", 30),
		MaxUploadSizeBytes:   int64(getEnvAsInt("MAX_UPLOAD_SIZE_BYTES", 5*1024*1024)),

		EIMSBaseURL:           getEnv("EIMS_BASE_URL", "http://core.mor.gov.et"),
		EIMSAPIVersion:        getEnv("EIMS_API_VERSION", "v1"),
		EIMSTimeout:           getEnvAsDuration("EIMS_TIMEOUT", 30*time.Second),
		EIMSMaxRetries:        getEnvAsInt("EIMS_MAX_RETRIES", 5),
		EIMSRateLimitMaxDelay: getEnvAsDuration("EIMS_RATE_LIMIT_MAX_DELAY", 10*time.Second),
		EIMSTokenExpiryMargin: getEnvAsDuration("EIMS_TOKEN_EXPIRY_MARGIN", 30*time.Second),
		EIMSRefreshTokenTTL:   getEnvAsDuration("EIMS_REFRESH_TOKEN_TTL", 7*24*time.Hour),

		SellerTIN:        getEnv("EIMS_SELLER_TIN", ""),
		SellerLegalName:  getEnv("EIMS_SELLER_LEGAL_NAME", ""),
		SellerPhone:      getEnv("EIMS_SELLER_PHONE", ""),
		SellerEmail:      getEnv("EIMS_SELLER_EMAIL", ""),
		SellerRegion:     getEnv("EIMS_SELLER_REGION", ""),
		SellerCity:       getEnv("EIMS_SELLER_CITY", ""),
		SystemNumber:     getEnv("EIMS_SYSTEM_NUMBER", ""),
		SystemType:       getEnv("EIMS_SYSTEM_TYPE", "POS"),
		EIMSClientID:     getEnv("EIMS_CLIENT_ID", ""),
		EIMSClientSecret: getEnv("EIMS_CLIENT_SECRET", ""),
		EIMSAPIKey:       getEnv("EIMS_API_KEY", ""),

		SettingsEncryptionKey: []byte(encryptionKey),

		VATRate:               getEnvAsDecimal("VAT_RATE", decimal.RequireFromString("0.15")),
		DefaultCommissionRate: getEnvAsDecimal("DEFAULT_COMMISSION_RATE", decimal.RequireFromString("0.15")),
		Currency:              getEnv("CURRENCY", "ETB"),

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),

		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),

		SenderEmail: getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:  getEnv("SENDER_NAME", "Taxiye EIMS Integration"),
		AlertEmail:  getEnv("ALERT_EMAIL", ""),
	}

	if Cfg.EIMSMaxRetries < 1 {
		log.Printf("WARNING: EIMS_MAX_RETRIES must be at least 1 (got %d). Using 1.", Cfg.EIMSMaxRetries)
		Cfg.EIMSMaxRetries = 1
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_PRIVATE_API_KEY is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, EIMS=%s/%s, EmailProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.EIMSBaseURL, Cfg.EIMSAPIVersion, Cfg.EmailServiceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Decimal value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid decimal value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
