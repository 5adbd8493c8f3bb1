package db

import (
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localevents/config"
)

// The embedded migrations must parse without a database.
func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	b, err := io.ReadAll(up)
	require.NoError(t, err)

	sql := string(b)
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS reports",
		"PRIMARY KEY (user_id, event_id)",
		"label VARCHAR(40) NOT NULL UNIQUE",
		"reset_token_expiration TIMESTAMPTZ",
	} {
		assert.True(t, strings.Contains(sql, want), "missing %q", want)
	}

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	down.Close()
}

func TestNewRedis_UsesAddr(t *testing.T) {
	rdb := NewRedis(config.RedisConfig{Addr: "127.0.0.1:6390"})
	defer rdb.Close()
	assert.Equal(t, "127.0.0.1:6390", rdb.Options().Addr)
}
