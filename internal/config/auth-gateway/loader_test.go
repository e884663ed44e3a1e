package auth_gateway_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/bazaar/internal/auth"
)

func setSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_PRIVATE_KEY", "access-private")
	t.Setenv("ACCESS_TOKEN_PUBLIC_KEY", "access-public")
	t.Setenv("REFRESH_TOKEN_PRIVATE_KEY", "refresh-private")
	t.Setenv("REFRESH_TOKEN_PUBLIC_KEY", "refresh-public")
	t.Setenv("PASSWORD_PEPPER", "pepper")
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 2*time.Second, cfg.DB.QueryTimeout)
	assert.Equal(t, auth.AccessTokenTTL, cfg.Auth.AccessTTL)
	assert.Equal(t, auth.RefreshTokenTTL, cfg.Auth.RefreshTTL)
	assert.Equal(t, auth.RenewalThreshold, cfg.Auth.RenewalThreshold)
	assert.Equal(t, auth.DefaultPasswordConfig(), cfg.Auth.Password)
	assert.Equal(t, "GBP", cfg.Auth.DefaultCurrency)
	assert.False(t, cfg.Redis.Enable)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.True(t, cfg.Kafka.Outbox.Enable)
	assert.Equal(t, 100, cfg.Kafka.Outbox.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Kafka.Outbox.InProgressTTL)

	assert.Equal(t, "access-private", cfg.Auth.Keys.AccessPrivate)
	assert.Equal(t, "refresh-public", cfg.Auth.Keys.RefreshPublic)
	assert.Equal(t, "pepper", cfg.Auth.Pepper)
	assert.Equal(t, "dev", cfg.App.Env)
	assert.True(t, cfg.CookieSecure())
}

func TestLoad_CookieSecureByEnv(t *testing.T) {
	cases := []struct {
		env    string
		secure bool
	}{
		{"local", false},
		{"test", false},
		{"dev", true},
		{"prod", true},
	}
	for _, tc := range cases {
		t.Run(tc.env, func(t *testing.T) {
			setSecrets(t)
			t.Setenv("APP_ENV", tc.env)

			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tc.env, cfg.App.Env)
			assert.Equal(t, tc.secure, cfg.CookieSecure())
		})
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	setSecrets(t)
	path := filepath.Join(t.TempDir(), "auth-gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: prod
db:
  driver: memory
auth:
  default_currency: USD
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`), 0o600))
	t.Setenv("SERVER_HTTP_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.DB.Driver)
	assert.Equal(t, "USD", cfg.Auth.DefaultCurrency)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.True(t, cfg.CookieSecure())
}

func TestLoad_MissingSecrets(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoKeys)
	assert.ErrorIs(t, err, ErrNoPepper)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	setSecrets(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("AUTH_DEFAULT_CURRENCY", "EUR")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown db.driver "sqlite"`)
	assert.Contains(t, err.Error(), `unsupported auth.default_currency "EUR"`)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
