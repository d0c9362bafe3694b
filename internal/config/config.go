package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	sharedauth "github.com/focusnest/teamfit-service/shared/auth"
	"github.com/focusnest/teamfit-service/shared/envconfig"
)

// Config encapsulates the runtime configuration for the teamfit service.
type Config struct {
	Port         string `validate:"required,numeric"`
	GCPProjectID string
	DataStore    DataStore        `validate:"oneof=memory firestore"`
	Achievements AchievementStore `validate:"oneof=memory firestore mongo"`
	LogLevel     string           `validate:"oneof=debug info warn warning error"`
	Location     *time.Location   `validate:"required"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Leaderboard  LeaderboardConfig
	// BadgeWriteAttempts bounds the compare-and-retry loop of stores without atomic unions.
	BadgeWriteAttempts int `validate:"min=1,max=20"`
}

// DataStore enumerates supported persistence backends for workouts and teams.
type DataStore string

const (
	// DataStoreMemory keeps data in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores data in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
)

// AchievementStore enumerates backends for earned badges.
type AchievementStore string

const (
	AchievementStoreMemory    AchievementStore = "memory"
	AchievementStoreFirestore AchievementStore = "firestore"
	AchievementStoreMongo     AchievementStore = "mongo"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     sharedauth.Mode `validate:"oneof=clerk noop"`
	JWKSURL  string
	Audience string
	Issuer   string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	EmulatorHost string
}

// MongoConfig locates the achievement database.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig locates the leaderboard cache. No addresses disables caching.
type RedisConfig struct {
	Addrs    []string
	Password string
}

// LeaderboardConfig tunes caching and the background refresh.
type LeaderboardConfig struct {
	CacheTTL time.Duration `validate:"gt=0"`
	// RefreshSchedule is a cron spec; empty disables the background refresh.
	RefreshSchedule string
}

// Load reads environment variables into Config with validation.
func Load() (Config, error) {
	attempts, err := envconfig.GetInt("BADGE_WRITE_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	ttl, err := envconfig.GetDuration("LEADERBOARD_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	tz := envconfig.Get("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg := Config{
		Port:               envconfig.Get("PORT", "8080"),
		GCPProjectID:       envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:          DataStore(strings.ToLower(envconfig.Get("DATASTORE", string(DataStoreMemory)))),
		Achievements:       AchievementStore(strings.ToLower(envconfig.Get("ACHIEVEMENT_STORE", string(AchievementStoreMemory)))),
		LogLevel:           strings.ToLower(envconfig.Get("LOG_LEVEL", "info")),
		Location:           loc,
		BadgeWriteAttempts: attempts,
		Auth: AuthConfig{
			Mode:     sharedauth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(sharedauth.ModeNoop)))),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:   envconfig.Get("CLERK_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
		},
		Mongo: MongoConfig{
			URI:      envconfig.Get("MONGODB_URI", ""),
			Database: envconfig.Get("MONGODB_DATABASE", "teamfit"),
		},
		Redis: RedisConfig{
			Addrs:    envconfig.GetList("REDIS_ADDRS"),
			Password: envconfig.Get("REDIS_PASSWORD", ""),
		},
		Leaderboard: LeaderboardConfig{
			CacheTTL:        ttl,
			RefreshSchedule: strings.TrimSpace(envconfig.Get("LEADERBOARD_REFRESH_SCHEDULE", "")),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// UsesFirestore reports whether any component needs a Firestore client.
func (c Config) UsesFirestore() bool {
	return c.DataStore == DataStoreFirestore || c.Achievements == AchievementStoreFirestore
}

func validate(cfg Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.UsesFirestore() && cfg.GCPProjectID == "" {
		return fmt.Errorf("gcp project id required when firestore is used")
	}

	if cfg.Achievements == AchievementStoreMongo && cfg.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is required when ACHIEVEMENT_STORE=mongo")
	}

	if cfg.Leaderboard.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Leaderboard.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid LEADERBOARD_REFRESH_SCHEDULE: %w", err)
		}
	}

	switch cfg.Auth.Mode {
	case sharedauth.ModeClerk:
		if cfg.Auth.JWKSURL == "" {
			return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
		}
	case sharedauth.ModeNoop:
		// no-op
	default:
		return fmt.Errorf("unsupported auth mode: %s", cfg.Auth.Mode)
	}

	return nil
}
