package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesServiceAndContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "wallet-api", "info", "production")

	ctx := WithLogger(context.Background(), logger)
	ctx = With(ctx, "account_id", "acct-1")
	FromContext(ctx).Info("deposit applied", "amount", 500)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "wallet-api", line["service"])
	assert.Equal(t, "acct-1", line["account_id"])
	assert.Equal(t, "deposit applied", line["msg"])
	assert.EqualValues(t, 500, line["amount"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "wallet-api", "warn", "production")

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
