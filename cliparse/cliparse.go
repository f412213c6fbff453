package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	DatabaseURL     string
	CachePath       string
	LeaderKeySalt   string
	MaxTopics       int
	SessionTTL      time.Duration
	PollInterval    time.Duration
	RemoteTimeout   time.Duration
	CleanupInterval time.Duration
}

// LocalOnly reports whether the store runs without a remote backend
func (c Config) LocalOnly() bool {
	return c.DatabaseURL == ""
}

// ParseFlags parses flags, loads the env file and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	fs := flag.NewFlagSet("deliberating-room", flag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Remote Postgres URL (empty runs local-only)")
	fs.StringVar(&cfg.CachePath, "cache", "", "Local SQLite cache path")
	fs.StringVar(&envFile, "env", ".env", "Env file to load before reading the environment")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.LeaderKeySalt, "leader-salt", "", "Leader key salt (prefer env)")

	// Tuning
	fs.IntVar(&cfg.MaxTopics, "max-topics", 0, "Topic ceiling per room")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 0, "Lifetime of rooms, snapshots and session records")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 0, "Change poll interval when push is unavailable")
	fs.DurationVar(&cfg.RemoteTimeout, "remote-timeout", 0, "Per-call remote store timeout")
	fs.DurationVar(&cfg.CleanupInterval, "cleanup-interval", 0, "Expiry cleanup interval")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", 3318)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.CachePath == "" {
		cfg.CachePath = os.Getenv("CACHE_PATH")
		if cfg.CachePath == "" {
			cfg.CachePath = "deliberating-cache.db"
		}
	}

	// Secrets - MUST be provided
	if cfg.LeaderKeySalt == "" {
		cfg.LeaderKeySalt = os.Getenv("LEADER_KEY_SALT")
	}
	if cfg.LeaderKeySalt == "" {
		return Config{}, errors.New("LEADER_KEY_SALT required")
	}

	if cfg.MaxTopics == 0 {
		n, err := envInt("MAX_TOPICS", 10)
		if err != nil {
			return Config{}, err
		}
		cfg.MaxTopics = n
	}
	if cfg.MaxTopics < 1 {
		return Config{}, errors.New("max topics must be at least 1")
	}

	durations := []struct {
		dst *time.Duration
		env string
		def time.Duration
	}{
		{&cfg.SessionTTL, "SESSION_TTL", 24 * time.Hour},
		{&cfg.PollInterval, "POLL_INTERVAL", 5 * time.Second},
		{&cfg.RemoteTimeout, "REMOTE_TIMEOUT", 3 * time.Second},
		{&cfg.CleanupInterval, "CLEANUP_INTERVAL", 10 * time.Minute},
	}
	for _, d := range durations {
		if *d.dst != 0 {
			continue
		}
		v, err := envDuration(d.env, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	return cfg, nil
}

// loadEnvFile loads KEY=value pairs without overriding variables already set.
// A missing file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
