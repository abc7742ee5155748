package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSenderEmail = "noreply@portfolio.com"
	defaultSMTPPort    = 587
	gmailSMTPHost      = "smtp.gmail.com"
)

// Config is built once at startup and never mutated afterwards.
type Config struct {
	HTTPHost string
	HTTPPort string
	GRPCHost string
	GRPCPort string

	Environment    string
	DiagnosticMode bool
	FrontendURLs   []string

	LogLevel  string
	LogFormat string

	RecipientEmail string
	RecipientName  string

	PrimaryAPIProvider string
	Brevo              BrevoConfig
	SES                SESConfig
	SMTP               *SMTPConfig

	MaxAttempts int
	BackoffStep time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN     string
	MySQLMaxOpen int
	MySQLMaxIdle int
	MySQLMaxLife time.Duration

	OperatorLogSinks []string

	ContactRateLimit int
	GeneralRateLimit int
	RateLimitWindow  time.Duration
}

type BrevoConfig struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
}

// Configured reports whether a usable API key is present.
func (c BrevoConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SourceEmail     string
}

// Configured reports whether static AWS credentials are present.
func (c SESConfig) Configured() bool {
	return strings.TrimSpace(c.AccessKeyID) != "" && strings.TrimSpace(c.SecretAccessKey) != ""
}

type SMTPConfig struct {
	Source   string
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", getEnv("NODE_ENV", "production"))

	brevoSender := firstNonEmpty(os.Getenv("BREVO_SENDER_EMAIL"), os.Getenv("EMAIL_FROM"), defaultSenderEmail)

	return &Config{
		HTTPHost: getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getEnv("HTTP_PORT", getEnv("PORT", "5000")),
		GRPCHost: getEnv("GRPC_HOST", "0.0.0.0"),
		GRPCPort: getEnv("GRPC_PORT", "9090"),

		Environment:    env,
		DiagnosticMode: strings.EqualFold(env, "development"),
		FrontendURLs:   splitList(os.Getenv("FRONTEND_URL")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RecipientEmail: getEnv("CONTACT_RECIPIENT_EMAIL", "gianpon05@gmail.com"),
		RecipientName:  getEnv("CONTACT_RECIPIENT_NAME", "Gian Daziel Pon"),

		PrimaryAPIProvider: strings.ToLower(getEnv("PRIMARY_API_PROVIDER", "brevo")),
		Brevo: BrevoConfig{
			APIKey:      strings.TrimSpace(os.Getenv("BREVO_API_KEY")),
			BaseURL:     getEnv("BREVO_API_URL", "https://api.brevo.com"),
			SenderEmail: brevoSender,
			SenderName:  getEnv("BREVO_SENDER_NAME", "Portfolio Contact Form"),
		},
		SES: SESConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SourceEmail:     getEnv("SES_SOURCE_EMAIL", brevoSender),
		},
		SMTP: resolveSMTP(os.Getenv),

		MaxAttempts: getEnvInt("DELIVERY_MAX_ATTEMPTS", 3),
		BackoffStep: getEnvDuration("DELIVERY_BACKOFF_STEP", time.Second),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MySQLDSN:     os.Getenv("MYSQL_DSN"),
		MySQLMaxOpen: getEnvInt("MYSQL_MAX_OPEN", 5),
		MySQLMaxIdle: getEnvInt("MYSQL_MAX_IDLE", 2),
		MySQLMaxLife: getEnvDuration("MYSQL_MAX_LIFE", 5*time.Minute),

		OperatorLogSinks: splitList(strings.ToLower(os.Getenv("OPERATOR_LOG_SINKS"))),

		ContactRateLimit: getEnvInt("CONTACT_RATE_LIMIT", 3),
		GeneralRateLimit: getEnvInt("GENERAL_RATE_LIMIT", 100),
		RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
	}, nil
}

// resolveSMTP picks the first fully populated credential set. The lookup
// order is dedicated relay, generic email host, then Gmail app password.
func resolveSMTP(lookup func(string) string) *SMTPConfig {
	from := firstNonEmpty(lookup("EMAIL_FROM"), lookup("BREVO_SENDER_EMAIL"), lookup("GMAIL_USER"), defaultSenderEmail)

	if key, server := strings.TrimSpace(lookup("BREVO_SMTP_KEY")), strings.TrimSpace(lookup("BREVO_SMTP_SERVER")); key != "" && server != "" {
		user, pass := key, key
		if idx := strings.Index(key, ":"); idx >= 0 {
			user, pass = key[:idx], key[idx+1:]
		}
		if u := strings.TrimSpace(lookup("BREVO_SMTP_USER")); u != "" {
			user = u
		}
		return &SMTPConfig{
			Source:   "brevo-smtp",
			Host:     server,
			Port:     parseInt(lookup("BREVO_SMTP_PORT"), defaultSMTPPort),
			Username: user,
			Password: pass,
			From:     from,
		}
	}

	host, user, pass := strings.TrimSpace(lookup("EMAIL_HOST")), strings.TrimSpace(lookup("EMAIL_USER")), lookup("EMAIL_PASS")
	if host != "" && user != "" && pass != "" {
		return &SMTPConfig{
			Source:   "email-host",
			Host:     host,
			Port:     parseInt(lookup("EMAIL_PORT"), defaultSMTPPort),
			Username: user,
			Password: pass,
			From:     from,
		}
	}

	gmailUser, gmailPass := strings.TrimSpace(lookup("GMAIL_USER")), lookup("GMAIL_APP_PASSWORD")
	if gmailUser != "" && gmailPass != "" {
		return &SMTPConfig{
			Source:   "gmail",
			Host:     gmailSMTPHost,
			Port:     defaultSMTPPort,
			Username: gmailUser,
			Password: gmailPass,
			From:     from,
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	return parseInt(os.Getenv(key), defaultValue)
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func parseInt(value string, defaultValue int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
