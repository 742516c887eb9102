package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDefaults(t *testing.T) {
	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "http", cfg.Email.Provider)
	assert.Equal(t, "@every 1m", cfg.Scheduler.Spec)
	assert.Equal(t, 15*time.Second, cfg.SMS.Timeout)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.App.IsProduction())
}

func TestProcessOverrides(t *testing.T) {
	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"DB_HOST":                "db",
		"DB_NAME":                "members",
		"SMS_SENDER_ID":          "8809617",
		"APP_ENVIRONMENT":        "production",
		"SCHEDULER_SPEC":         "*/5 * * * *",
		"SOCIAL_RATE_PER_SECOND": "2.5",
	}))
	require.NoError(t, err)

	assert.Equal(t, "host=db port=5432 user=postgres password=postgres dbname=members sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "8809617", cfg.SMS.SenderID)
	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.Spec)
	assert.Equal(t, 2.5, cfg.Social.RatePerSecond)
}
