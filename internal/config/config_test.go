package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/wallet")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5, cfg.CASMaxAttempts)
	assert.Equal(t, int64(10_000_000), cfg.DepositLimitMinor)
	assert.Equal(t, 100, cfg.TxListMaxLimit)
	assert.Equal(t, NotifySinkLog, cfg.NotifySink)
	assert.Equal(t, 30*time.Second, cfg.NotifyMaxElapsed())
	assert.Zero(t, cfg.UndoMaxElapsed())
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, []string{"https://*", "http://*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing jwt secret",
			env:  map[string]string{"DATABASE_URL": "postgres://localhost/wallet"},
		},
		{
			name: "postgres without database url",
			env:  map[string]string{"JWT_SECRET": "secret"},
		},
		{
			name: "unknown store driver",
			env:  map[string]string{"JWT_SECRET": "secret", "STORE_DRIVER": "mongo"},
		},
		{
			name: "unknown notify sink",
			env:  map[string]string{"JWT_SECRET": "secret", "STORE_DRIVER": "memory", "NOTIFY_SINK": "kafka"},
		},
		{
			name: "zero cas attempts",
			env:  map[string]string{"JWT_SECRET": "secret", "STORE_DRIVER": "memory", "WALLET_CAS_MAX_ATTEMPTS": "0"},
		},
		{
			name: "negative undo budget",
			env:  map[string]string{"JWT_SECRET": "secret", "STORE_DRIVER": "memory", "WALLET_UNDO_MAX_ELAPSED_S": "-1"},
		},
		{
			name: "no notify workers",
			env:  map[string]string{"JWT_SECRET": "secret", "STORE_DRIVER": "memory", "NOTIFY_WORKERS": "0"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("DATABASE_URL", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MemoryStoreNeedsNoDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
}
