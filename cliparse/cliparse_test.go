// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// noEnvFile keeps a stray .env in the package dir from leaking into tests
var noEnvFile = []string{"-env", ""}

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("LEADER_KEY_SALT", "test-salt")
	t.Setenv("MAX_TOPICS", "4")
	t.Setenv("POLL_INTERVAL", "2s")

	cfg, err := ParseFlags(noEnvFile)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.MaxTopics != 4 {
		t.Errorf("expected max topics 4, got %d", cfg.MaxTopics)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %v", cfg.PollInterval)
	}
	if cfg.LocalOnly() {
		t.Error("config with DATABASE_URL should not be local-only")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("LEADER_KEY_SALT", "s")
	t.Setenv("DATABASE_URL", "")

	cfg, err := ParseFlags(noEnvFile)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("Port = %d, want 3318", cfg.Port)
	}
	if cfg.CachePath != "deliberating-cache.db" {
		t.Errorf("CachePath = %q", cfg.CachePath)
	}
	if cfg.MaxTopics != 10 {
		t.Errorf("MaxTopics = %d, want 10", cfg.MaxTopics)
	}
	if cfg.SessionTTL != 24*time.Hour || cfg.PollInterval != 5*time.Second ||
		cfg.RemoteTimeout != 3*time.Second || cfg.CleanupInterval != 10*time.Minute {
		t.Errorf("unexpected duration defaults: %+v", cfg)
	}
	if !cfg.LocalOnly() {
		t.Error("empty DATABASE_URL should be local-only")
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LEADER_KEY_SALT", "env-salt")

	cfg, err := ParseFlags([]string{"-env", "", "-p", "8080", "-d", "postgres://cli", "-leader-salt", "s1", "-remote-timeout", "500ms"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.LeaderKeySalt != "s1" {
		t.Errorf("LeaderKeySalt = %q, want s1", cfg.LeaderKeySalt)
	}
	if cfg.RemoteTimeout != 500*time.Millisecond {
		t.Errorf("RemoteTimeout = %v, want 500ms", cfg.RemoteTimeout)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing salt", map[string]string{"LEADER_KEY_SALT": ""}, nil},
		{"bad port", map[string]string{"LEADER_KEY_SALT": "s", "PORT": "abc"}, nil},
		{"bad duration", map[string]string{"LEADER_KEY_SALT": "s", "SESSION_TTL": "forever"}, nil},
		{"negative duration", map[string]string{"LEADER_KEY_SALT": "s", "POLL_INTERVAL": "-1s"}, nil},
		{"zero topics", map[string]string{"LEADER_KEY_SALT": "s"}, []string{"-max-topics", "-1"}},
		{"unknown flag", map[string]string{"LEADER_KEY_SALT": "s"}, []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append(append([]string{}, noEnvFile...), tt.args...)
			if _, err := ParseFlags(args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseFlags_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "LEADER_KEY_SALT=from-file\nCACHE_PATH=/tmp/from-file.db\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEADER_KEY_SALT", "")
	os.Unsetenv("LEADER_KEY_SALT")
	t.Setenv("CACHE_PATH", "from-env.db")

	cfg, err := ParseFlags([]string{"-env", path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LeaderKeySalt != "from-file" {
		t.Errorf("LeaderKeySalt = %q, want from-file", cfg.LeaderKeySalt)
	}
	// existing env wins over the file
	if cfg.CachePath != "from-env.db" {
		t.Errorf("CachePath = %q, want from-env.db", cfg.CachePath)
	}
}

func TestParseFlags_MissingEnvFileIsFine(t *testing.T) {
	t.Setenv("LEADER_KEY_SALT", "s")
	if _, err := ParseFlags([]string{"-env", filepath.Join(t.TempDir(), "absent.env")}); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
}
