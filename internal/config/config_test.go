package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(env(map[string]string{
		"BOT_TOKEN":    "123:abc",
		"DATABASE_URL": "postgres://localhost/finance",
	}))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.DefaultPlanDays)
	assert.Zero(t, cfg.AdminID)
	assert.NotEmpty(t, cfg.PaymentInfo)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(env(map[string]string{
		"BOT_TOKEN":         "123:abc",
		"DATABASE_URL":      "postgres://localhost/finance",
		"ADMIN_ID":          "424242",
		"LOG_LEVEL":         "DEBUG",
		"LOG_DEVELOPMENT":   "true",
		"DEFAULT_PLAN_DAYS": "90",
		"ADMIN_CONTACT_URL": "https://t.me/financeadmin",
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(424242), cfg.AdminID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogDevelopment)
	assert.Equal(t, 90, cfg.DefaultPlanDays)
}

func TestLoadErrors(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"BOT_TOKEN": "t", "DATABASE_URL": "postgres://x"}
	}
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing token", "BOT_TOKEN", ""},
		{"missing dsn", "DATABASE_URL", ""},
		{"bad admin id", "ADMIN_ID", "root"},
		{"negative admin id", "ADMIN_ID", "-5"},
		{"bad level", "LOG_LEVEL", "loud"},
		{"zero plan days", "DEFAULT_PLAN_DAYS", "0"},
		{"bad contact url", "ADMIN_CONTACT_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			m[tt.key] = tt.val
			_, err := Load(env(m))
			assert.Error(t, err)
		})
	}
}
