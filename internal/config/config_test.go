package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "care")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 12, cfg.BcryptSaltRounds)
	assert.Equal(t, "memory", cfg.QueueDriver)
	assert.Contains(t, cfg.DatabaseURL, "db.internal")
	assert.Contains(t, cfg.DatabaseURL, "/care?")
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownQueueDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("QUEUE_DRIVER", "kafka")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	t.Setenv("SOME_BOOL", "true")

	assert.Equal(t, 7, GetEnvInt("SOME_INT", 7))
	assert.True(t, GetEnvBool("SOME_BOOL", false))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
}
