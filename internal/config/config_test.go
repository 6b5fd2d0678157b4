package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, NotifierSMTP, cfg.Notifier)
	assert.Equal(t, int64(34154243), cfg.MagicLinkTemplateID)
	assert.Equal(t, "magic-link", cfg.MagicLinkTemplateKey)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.True(t, cfg.SingleLiveCode)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "verification_codes", cfg.DynamoTables.VerificationCodes)
	assert.Equal(t, []byte(testSecret), cfg.JWTSecret.Reveal())
}

func TestLoad_UnsetsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	_, err := Load()
	require.NoError(t, err)
	_, present := os.LookupEnv("JWT_SECRET")
	assert.False(t, present)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.JWTSecret.IsSet())
	assert.ErrorContains(t, cfg.RequireSigningKey(), "JWT_SECRET")
}

func TestRequireSigningKey(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.RequireSigningKey())
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORE_BACKEND", "mysql")
	_, err := Load()
	assert.ErrorContains(t, err, "STORE_BACKEND")
}

func TestLoad_SNSRequiresTopic(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("NOTIFIER", "sns")
	_, err := Load()
	assert.ErrorContains(t, err, "SNS_TOPIC_ARN")

	// The secret is unset from the environment after each parse.
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:magic-link")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, NotifierSNS, cfg.Notifier)
}
