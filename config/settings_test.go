package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	env := map[string]string{
		"PRPO_CONFIG_FILE":  "",
		"PRPO_PR_DATA_PATH": "/srv/pr",
		"PRPO_PO_DATA_PATH": "/srv/po",
		"PRPO_GPG_PR":       "pr-secret",
		"PRPO_GPG_PO":       "po-secret",
		"PRPO_DB_HOST":      "db1",
		"PRPO_DB_USERNAME":  "prpo",
		"PRPO_DB_PASSWORD":  "pw",
		"PRPO_DB_NAME":      "prpo",
		"PRPO2_DB_HOST":     "db2",
		"PRPO2_DB_USERNAME": "prpo",
		"PRPO2_DB_PASSWORD": "pw",
		"PRPO2_DB_NAME":     "prpo_raw",
		"PRPO_TIMEZONE":     "",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	t.Setenv("PRPO_POLL_INTERVAL_SECONDS", "")
	t.Setenv("PRPO_RECONNECT_BACKOFF_SECONDS", "")
}

func TestLoadSettingsDefaults(t *testing.T) {
	setRequiredEnv(t)

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.PollInterval != 600*time.Second || s.ReconnectDelay != 60*time.Second {
		t.Fatalf("unexpected intervals %v %v", s.PollInterval, s.ReconnectDelay)
	}
	if s.Primary.Port != "3306" || s.Staging.Name != "prpo_raw" {
		t.Fatalf("unexpected database settings %+v %+v", s.Primary, s.Staging)
	}
	if s.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", s.Location())
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRPO_POLL_INTERVAL_SECONDS", "30")
	t.Setenv("PRPO_TIMEZONE", "Asia/Yangon")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.PollInterval != 30*time.Second {
		t.Fatalf("unexpected poll interval %v", s.PollInterval)
	}
	if s.Location().String() != "Asia/Yangon" {
		t.Fatalf("unexpected location %v", s.Location())
	}
}

func TestLoadSettingsMissingPassphrase(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRPO_GPG_PO", "")

	_, err := LoadSettings()
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cerr.Field != "Settings.PoPassphrase" {
		t.Fatalf("unexpected field %q", cerr.Field)
	}
}

func TestLoadSettingsRejectsBadValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRPO_RECONNECT_BACKOFF_SECONDS", "0")
	var cerr *ConfigurationError
	if _, err := LoadSettings(); !errors.As(err, &cerr) || cerr.Field != "Settings.ReconnectDelay" {
		t.Fatalf("expected ReconnectDelay error, got %v", err)
	}

	setRequiredEnv(t)
	t.Setenv("PRPO_TIMEZONE", "Mars/Olympus")
	if _, err := LoadSettings(); !errors.As(err, &cerr) || cerr.Field != "Timezone" {
		t.Fatalf("expected Timezone error, got %v", err)
	}
}

func TestLoadSettingsConfigFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRPO_PR_DATA_PATH", "")
	os.Unsetenv("PRPO_PR_DATA_PATH")

	path := filepath.Join(t.TempDir(), "prpo.env")
	if err := os.WriteFile(path, []byte("PRPO_PR_DATA_PATH=/from/file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("PRPO_CONFIG_FILE", path)

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.PrDataPath != "/from/file" {
		t.Fatalf("expected the config file value, got %q", s.PrDataPath)
	}

	t.Setenv("PRPO_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.env"))
	var cerr *ConfigurationError
	if _, err := LoadSettings(); !errors.As(err, &cerr) || cerr.Field != "PRPO_CONFIG_FILE" {
		t.Fatalf("expected PRPO_CONFIG_FILE error, got %v", err)
	}
}

func TestSkipMigrations(t *testing.T) {
	t.Setenv("SKIP_MIGRATIONS", "TRUE")
	if !SkipMigrations() {
		t.Fatalf("expected migrations to be skipped")
	}
	t.Setenv("SKIP_MIGRATIONS", "no")
	if SkipMigrations() {
		t.Fatalf("expected migrations to run")
	}
}
