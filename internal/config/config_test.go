package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg, err := fromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.Secret)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REPORT_TIMEZONE", "SNAPSHOT_TTL", "ACCESS_TOKEN_TTL", "STOCK_ALERT_CRON", "STOCK_ALERT_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := fromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "Asia/Manila", cfg.Report.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Report.SnapshotTTL)
	assert.Equal(t, 8*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "0 7 * * *", cfg.Scheduler.StockAlertCron)
	assert.False(t, cfg.Scheduler.StockAlertEnabled)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_SECRET", "  0123456789abcdef0123456789abcdef  ")
	t.Setenv("ACCESS_TOKEN_TTL", "45m")
	t.Setenv("SNAPSHOT_TTL", "2m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DAILY_CLOSE_ENABLED", "true")
	t.Setenv("REPORT_TIMEZONE", "UTC")

	cfg, err := fromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Auth.Secret)
	assert.Equal(t, 45*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 2*time.Minute, cfg.Report.SnapshotTTL)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Scheduler.DailyCloseEnabled)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLocationRejectsUnknownZone(t *testing.T) {
	cfg := Config{Report: Report{Timezone: "Mars/Olympus_Mons"}}
	_, err := cfg.Location()
	assert.Error(t, err)
}
