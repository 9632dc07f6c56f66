package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("DEBUG", false).GetLevel())
	assert.Equal(t, zerolog.WarnLevel, New(" warn ", false).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("chatty", false).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("", false).GetLevel())
}

func TestNewWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "info", false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("sale_id", "sale-1").Msg("sale recorded")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"sale_id":"sale-1"`)
	assert.Contains(t, out, `"message":"sale recorded"`)
}
