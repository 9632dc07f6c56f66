package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latiafanny/backend/internal/cache"
	"latiafanny/backend/internal/config"
	"latiafanny/backend/internal/store/memory"
)

func baseConfig() config.Config {
	return config.Config{
		Report: config.Report{Timezone: "Asia/Manila", SnapshotTTL: 30 * time.Second},
	}
}

func TestOpenWithoutDatabaseUsesSeededMemory(t *testing.T) {
	a, err := Open(context.Background(), baseConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.Store{}, a.Repo)
	assert.IsType(t, &cache.MemoryTokenDenylist{}, a.Denylist)
	assert.Equal(t, "Asia/Manila", a.Location.String())
	assert.Equal(t, a.Location, a.Service.Location())

	products, err := a.Service.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 10)
}

func TestOpenRejectsUnknownTimezone(t *testing.T) {
	cfg := baseConfig()
	cfg.Report.Timezone = "Mars/Olympus"

	_, err := Open(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "REPORT_TIMEZONE")
}

func TestOpenFallsBackWhenRedisIsDown(t *testing.T) {
	cfg := baseConfig()
	cfg.Redis.Addr = "127.0.0.1:1"

	a, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.MemoryTokenDenylist{}, a.Denylist)
	assert.Empty(t, a.closers)
}
