package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.False(t, cfg.Payment.Enabled())
	assert.Empty(t, cfg.Events.KafkaBrokers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_BASE_URL", "https://shop.example.com/")
	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "90s")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_PUBLIC_KEY", "pk_test_123")
	t.Setenv("STRIPE_CURRENCY", "EUR")
	t.Setenv("EVENTS_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://shop.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Database.ConnMaxLifetime)
	assert.True(t, cfg.Payment.Enabled())
	assert.Equal(t, "eur", cfg.Payment.Currency)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.KafkaBrokers)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
