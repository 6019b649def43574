package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairdesk-service/internal/domain/lifecycle"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, SequenceDatabase, cfg.PaymentSequence)
	assert.Equal(t, 5, cfg.PaymentNumberMaxAttempts)
	assert.Equal(t, lifecycle.CompletionOverride, cfg.CompletionPaymentPolicy)
	assert.Equal(t, "@every 1m", cfg.NotificationRetrySpec)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.EmailEnabled())
	assert.False(t, cfg.SMSEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("READ_TIMEOUT", "45")
	t.Setenv("WRITE_TIMEOUT", "1m")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("PAYMENT_SEQUENCE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("COMPLETION_PAYMENT_POLICY", "STRICT")
	t.Setenv("SMS_RATE_PER_SECOND", "0.5")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550000")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.WriteTimeout)
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, SequenceRedis, cfg.PaymentSequence)
	assert.Equal(t, lifecycle.CompletionStrict, cfg.CompletionPaymentPolicy)
	assert.Equal(t, 0.5, cfg.SMSRatePerSecond)
	assert.True(t, cfg.SMSEnabled())
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PAYMENT_SEQUENCE", "redis")
	t.Setenv("REDIS_URL", "")
	t.Setenv("COMPLETION_PAYMENT_POLICY", "sometimes")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "REDIS_URL is required")
	assert.Contains(t, err.Error(), `unknown completion payment policy "sometimes"`)

	cfg := &Config{
		JWTSecret:                "x",
		PaymentSequence:          "sqlite",
		CompletionPaymentPolicy:  lifecycle.CompletionOff,
		PaymentNumberMaxAttempts: 1,
		NotificationMaxAttempts:  1,
	}
	assert.ErrorContains(t, cfg.Validate(), `unknown payment sequence "sqlite"`)
}
