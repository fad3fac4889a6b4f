package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvDuration(t *testing.T) {
	t.Setenv("TTL_A", "90m")
	t.Setenv("TTL_B", "45")
	t.Setenv("TTL_C", "soon")
	assert.Equal(t, 90*time.Minute, EnvDuration("TTL_A", time.Hour))
	assert.Equal(t, 45*time.Second, EnvDuration("TTL_B", time.Hour))
	assert.Equal(t, time.Hour, EnvDuration("TTL_C", time.Hour))
	assert.Equal(t, time.Hour, EnvDuration("TTL_UNSET", time.Hour))
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "true")
	t.Setenv("FLAG_BAD", "maybe")
	assert.True(t, EnvBool("FLAG_ON", false))
	assert.True(t, EnvBool("FLAG_BAD", true))
	assert.False(t, EnvBool("FLAG_UNSET", false))
}

func TestGetPaymentsConfig(t *testing.T) {
	t.Setenv("ORDERS_FALLBACK_USER_ID", "7")
	t.Setenv("PAYMENT_SESSION_TTL", "")
	cfg := GetPaymentsConfig()
	require.NotNil(t, cfg.FallbackUserID)
	assert.Equal(t, uint(7), *cfg.FallbackUserID)
	assert.Equal(t, DEFAULT_SESSION_TTL, cfg.SessionTTL)

	t.Setenv("ORDERS_FALLBACK_USER_ID", "admin")
	assert.Nil(t, GetPaymentsConfig().FallbackUserID)
}

func TestNoonConfig(t *testing.T) {
	t.Setenv("NOON_API_URL", "")
	t.Setenv("NOON_API_KEY", "key")
	t.Setenv("NOON_BUSINESS_ID", "aworld")
	t.Setenv("NOON_APP_ID", "")
	t.Setenv("NOON_RETURN_URL", "https://shop.aworld.test/")

	cfg := GetNoonConfig()
	assert.Equal(t, DEFAULT_NOON_API_URL, cfg.BaseURL)
	assert.Equal(t, "https://shop.aworld.test", cfg.ReturnURL)
	assert.False(t, cfg.Complete())

	cfg.AppID = "web"
	assert.True(t, cfg.Complete())
}
