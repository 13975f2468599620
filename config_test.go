package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STATIC_DIR", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOW",
		"RATE_LIMIT_PER_IP", "EVENT_RATE_LIMIT", "MAX_MESSAGE_SIZE", "MAX_CHAT_LENGTH"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "public", cfg.StaticDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSAllow)
	assert.Equal(t, 20.0, cfg.RateLimitPerIP)
	assert.Equal(t, 50.0, cfg.EventRateLimit)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 1000, cfg.MaxChatLength)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CORS_ALLOW", "http://a.test, http://b.test")
	t.Setenv("RATE_LIMIT_PER_IP", "2.5")
	t.Setenv("MAX_CHAT_LENGTH", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllow)
	assert.Equal(t, 2.5, cfg.RateLimitPerIP)
	assert.Equal(t, 1000, cfg.MaxChatLength)
}
