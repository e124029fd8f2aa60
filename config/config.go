package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
)

// SecretGetter is satisfied by aws_pkg.SecretsClient.
type SecretGetter interface {
	GetSecretJSON(ctx context.Context, name string) (map[string]string, error)
}

const (
	stripeSecretName = "storefront/STRIPE"
	appSecretName    = "storefront/APP"
)

type Config struct {
	Port   string
	AppEnv string

	MongoURI string
	MongoDB  string
	RedisURL string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	StripeAPIURL         string
	Currency             string
	MaxPaymentAmount     int64
	GatewayTimeout       time.Duration

	FreeShippingThreshold float64
	FlatShippingFee       float64
	StrictTotals          bool

	CommitLockTTL time.Duration
	CartTTL       time.Duration

	AdminPassword     string
	AdminPasswordHash string
	JWTSecret         string
	TokenTTL          time.Duration

	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int

	EventBus          string
	OrderSNSTopicARN  string
	KafkaBrokers      []string
	OrderKafkaTopic   string
	ReconcileQueueURL string

	CloudWatchEnabled  bool
	CloudWatchLogGroup string
	MetricsNamespace   string

	SMTPHost   string
	SMTPPort   string
	SMTPUser   string
	SMTPPass   string
	AdminEmail string
	StoreName  string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
}

// LoadConfig reads configuration from the environment (and an optional .env
// file), applying the Secrets Manager override when AWS_USE_SECRETS=true.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config for secrets: %w", err)
		}
		applySecrets(context.Background(), cfg, aws_pkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Port:   getEnv("PORT", "5000"),
		AppEnv: getEnv("APP_ENV", "development"),

		MongoURI: os.Getenv("MONGO_URI"),
		MongoDB:  getEnv("MONGO_DB", "storefront"),
		RedisURL: os.Getenv("REDIS_URL"),

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeAPIURL:         os.Getenv("STRIPE_API_URL"),
		Currency:             strings.ToLower(getEnv("CURRENCY", "egp")),
		MaxPaymentAmount:     getInt64("MAX_PAYMENT_AMOUNT", 1000000),
		GatewayTimeout:       getDuration("GATEWAY_TIMEOUT", 10*time.Second),

		FreeShippingThreshold: getFloat("FREE_SHIPPING_THRESHOLD", 500),
		FlatShippingFee:       getFloat("FLAT_SHIPPING_FEE", 50),
		StrictTotals:          getEnv("STRICT_TOTALS", "true") == "true",

		CommitLockTTL: getDuration("COMMIT_LOCK_TTL", 30*time.Second),
		CartTTL:       getDuration("CART_TTL", 72*time.Hour),

		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          getDuration("ADMIN_TOKEN_TTL", 12*time.Hour),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: int(getInt64("RATE_LIMIT_BURST", 20)),

		EventBus:          strings.ToLower(getEnv("EVENT_BUS", "none")),
		OrderSNSTopicARN:  os.Getenv("ORDER_SNS_TOPIC_ARN"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		OrderKafkaTopic:   getEnv("ORDER_KAFKA_TOPIC", "order.events"),
		ReconcileQueueURL: os.Getenv("RECONCILE_QUEUE_URL"),

		CloudWatchEnabled:  os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup: getEnv("CLOUDWATCH_LOG_GROUP", "/storefront/services"),
		MetricsNamespace:   getEnv("METRICS_NAMESPACE", "Storefront"),

		SMTPHost:   os.Getenv("SMTP_HOST"),
		SMTPPort:   getEnv("SMTP_PORT", "587"),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
		StoreName:  getEnv("STORE_NAME", "NUMBER 6 Store"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Africa/Cairo"),
	}
}

func applySecrets(ctx context.Context, cfg *Config, sm SecretGetter) {
	if m := readSecretJSON(ctx, sm, stripeSecretName); m != nil {
		override(&cfg.StripeSecretKey, m["STRIPE_SECRET_KEY"])
		override(&cfg.StripePublishableKey, m["STRIPE_PUBLISHABLE_KEY"])
		override(&cfg.StripeWebhookSecret, m["STRIPE_WEBHOOK_SECRET"])
	}
	if m := readSecretJSON(ctx, sm, appSecretName); m != nil {
		override(&cfg.MongoURI, m["MONGO_URI"])
		override(&cfg.AdminPasswordHash, m["ADMIN_PASSWORD_HASH"])
		override(&cfg.JWTSecret, m["JWT_SECRET"])
		override(&cfg.SMTPPass, m["SMTP_PASS"])
		override(&cfg.PostgresPassword, m["POSTGRES_PASSWORD"])
	}
}

func readSecretJSON(ctx context.Context, sm SecretGetter, name string) map[string]string {
	m, err := sm.GetSecretJSON(ctx, name)
	if err != nil {
		return nil
	}
	return m
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.StripePublishableKey == "" {
		missing = append(missing, "STRIPE_PUBLISHABLE_KEY")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		missing = append(missing, "ADMIN_PASSWORD or ADMIN_PASSWORD_HASH")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.MaxPaymentAmount <= 0 {
		return fmt.Errorf("MAX_PAYMENT_AMOUNT must be positive")
	}
	switch c.EventBus {
	case "none", "":
	case "sns":
		if c.OrderSNSTopicARN == "" {
			return fmt.Errorf("ORDER_SNS_TOPIC_ARN is required when EVENT_BUS=sns")
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENT_BUS=kafka")
		}
	default:
		return fmt.Errorf("unsupported EVENT_BUS %q", c.EventBus)
	}
	return nil
}

// PostgresEnabled reports whether the notification log store is configured.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != "" && c.PostgresUser != "" && c.PostgresDB != ""
}

// PostgresDSN builds the DSN for the notification log store.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

// NeedsAWS reports whether any AWS client has to be constructed at startup.
func (c *Config) NeedsAWS() bool {
	return c.CloudWatchEnabled || c.EventBus == "sns" || c.ReconcileQueueURL != ""
}

// SMTPEnabled reports whether order emails can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.AdminEmail != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
