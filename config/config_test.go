package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) GetSecretJSON(_ context.Context, name string) (map[string]string, error) {
	v, ok := f[name]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return v, nil
}

func setRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_test_123")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("ADMIN_PASSWORD", "admin-pass")
	t.Setenv("AWS_USE_SECRETS", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "egp", cfg.Currency)
	assert.Equal(t, int64(1000000), cfg.MaxPaymentAmount)
	assert.Equal(t, 500.0, cfg.FreeShippingThreshold)
	assert.Equal(t, 50.0, cfg.FlatShippingFee)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.True(t, cfg.StrictTotals)
	assert.Equal(t, "none", cfg.EventBus)
	assert.Equal(t, "NUMBER 6 Store", cfg.StoreName)
	assert.False(t, cfg.PostgresEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8090")
	t.Setenv("CURRENCY", "USD")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("STRICT_TOTALS", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example, https://admin.example ,")
	t.Setenv("EVENT_BUS", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.False(t, cfg.StrictTotals)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}

func TestValidate_EventBus(t *testing.T) {
	setRequired(t)
	cfg := fromEnv()

	cfg.EventBus = "sns"
	assert.Error(t, cfg.Validate())

	cfg.OrderSNSTopicARN = "arn:aws:sns:eu-west-2:000000000000:order-events"
	assert.NoError(t, cfg.Validate())

	cfg.EventBus = "rabbit"
	assert.Error(t, cfg.Validate())
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{StripeSecretKey: "sk_env", MongoURI: "mongodb://env"}
	sm := fakeSecrets{
		stripeSecretName: {"STRIPE_SECRET_KEY": "sk_secret", "STRIPE_WEBHOOK_SECRET": "whsec_1"},
		appSecretName:    {"MONGO_URI": "mongodb://secret", "JWT_SECRET": ""},
	}

	applySecrets(context.Background(), cfg, sm)

	assert.Equal(t, "sk_secret", cfg.StripeSecretKey)
	assert.Equal(t, "whsec_1", cfg.StripeWebhookSecret)
	assert.Equal(t, "mongodb://secret", cfg.MongoURI)
	assert.Empty(t, cfg.JWTSecret)
}

func TestApplySecrets_KeepsEnvWhenSecretsMissing(t *testing.T) {
	cfg := &Config{StripeSecretKey: "sk_env", MongoURI: "mongodb://env"}
	applySecrets(context.Background(), cfg, fakeSecrets{})
	assert.Equal(t, "sk_env", cfg.StripeSecretKey)
	assert.Equal(t, "mongodb://env", cfg.MongoURI)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "logs",
		PostgresPort: "5432", PostgresSSLMode: "disable", PostgresTimeZone: "UTC",
	}
	assert.True(t, cfg.PostgresEnabled())
	assert.Equal(t, "host=db user=u password=p dbname=logs port=5432 sslmode=disable TimeZone=UTC", cfg.PostgresDSN())
}
