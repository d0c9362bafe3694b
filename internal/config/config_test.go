package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedauth "github.com/focusnest/teamfit-service/shared/auth"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATASTORE", "")
	t.Setenv("ACHIEVEMENT_STORE", "")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DataStoreMemory, cfg.DataStore)
	assert.Equal(t, AchievementStoreMemory, cfg.Achievements)
	assert.Equal(t, sharedauth.ModeNoop, cfg.Auth.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Leaderboard.CacheTTL)
	assert.Equal(t, 5, cfg.BadgeWriteAttempts)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.False(t, cfg.UsesFirestore())
}

func TestLoadFullEnvironment(t *testing.T) {
	t.Setenv("DATASTORE", "firestore")
	t.Setenv("ACHIEVEMENT_STORE", "mongo")
	t.Setenv("GCP_PROJECT_ID", "teamfit-dev")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_ADDRS", "redis-a:6379, redis-b:6379")
	t.Setenv("LEADERBOARD_CACHE_TTL", "90s")
	t.Setenv("LEADERBOARD_REFRESH_SCHEDULE", "*/15 * * * *")
	t.Setenv("BADGE_WRITE_ATTEMPTS", "7")
	t.Setenv("TIMEZONE", "Asia/Jakarta")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.UsesFirestore())
	assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 90*time.Second, cfg.Leaderboard.CacheTTL)
	assert.Equal(t, 7, cfg.BadgeWriteAttempts)
	assert.Equal(t, "Asia/Jakarta", cfg.Location.String())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "teamfit", cfg.Mongo.Database)
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown datastore", env: map[string]string{"DATASTORE": "postgres"}},
		{name: "firestore without project", env: map[string]string{"DATASTORE": "firestore", "GCP_PROJECT_ID": ""}},
		{name: "mongo without uri", env: map[string]string{"ACHIEVEMENT_STORE": "mongo", "MONGODB_URI": ""}},
		{name: "clerk without jwks", env: map[string]string{"AUTH_MODE": "clerk", "CLERK_JWKS_URL": ""}},
		{name: "bad schedule", env: map[string]string{"LEADERBOARD_REFRESH_SCHEDULE": "sometimes"}},
		{name: "bad ttl", env: map[string]string{"LEADERBOARD_CACHE_TTL": "soon"}},
		{name: "zero attempts", env: map[string]string{"BADGE_WRITE_ATTEMPTS": "0"}},
		{name: "bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{name: "bad port", env: map[string]string{"PORT": "http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TIMEZONE", "UTC")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
