package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		YooKassa: YooKassaConfig{ShopID: "shop", SecretKey: "secret"},
	}
}

func TestLoadReadsDatabaseSection(t *testing.T) {
	const yamlBody = `
telegram:
  token: "123:abc"
yookassa:
  shop_id: shop
  secret_key: secret
database:
  host: db.internal
  port: "5433"
  user: bot
  password: hunter2
  name: cash_healer
  sslmode: require
  max_connections: 12
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DatabaseConfig{
		Host:           "db.internal",
		Port:           "5433",
		User:           "bot",
		Password:       "hunter2",
		Name:           "cash_healer",
		SSLMode:        "require",
		MaxConnections: 12,
	}, cfg.Database)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "https://api.yookassa.ru/v3", cfg.YooKassa.BaseURL)
	assert.Equal(t, 450, cfg.Services.Detox.PriceRUB)
	assert.Equal(t, 350, cfg.Services.Modeling.PriceRUB)
	assert.Equal(t, 20, cfg.Agent.MaxHistory)
	assert.Equal(t, 60, cfg.Agent.TimeoutSeconds)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)
}

func TestNormalizeTrimsGatewayBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.YooKassa.BaseURL = "https://sandbox.yookassa.ru/v3/"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "https://sandbox.yookassa.ru/v3", cfg.YooKassa.BaseURL)
}

func TestNormalizeRejectsMissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeRejectsMissingGatewayCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.YooKassa.SecretKey = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeRunModes(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)

	cfg = validConfig()
	cfg.Telegram.RunMode = "webhook"
	assert.Error(t, Normalize(cfg), "webhook mode requires url, listen and port")

	cfg = validConfig()
	cfg.Telegram.RunMode = "webhook"
	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com/hook", Listen: "0.0.0.0", Port: 8443}
	assert.NoError(t, Normalize(cfg))

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeExcludeUpdates(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "message"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{"callback", "message"}, cfg.RateLimit.ExcludeUpdates)

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"sticker"}
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeKeepsExplicitPrices(t *testing.T) {
	cfg := validConfig()
	cfg.Services.Detox.PriceRUB = 500
	cfg.Services.Modeling.PriceRUB = 400
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, 500, cfg.Services.Detox.PriceRUB)
	assert.Equal(t, 400, cfg.Services.Modeling.PriceRUB)
}
