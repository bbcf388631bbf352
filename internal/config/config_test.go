package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("VENUE_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Storage.Key != "squash4all_sessions" {
		t.Errorf("expected default storage key, got %s", cfg.Storage.Key)
	}
	if cfg.Venue.SquashCourts != 5 || cfg.Venue.TableTennisTables != 1 {
		t.Errorf("expected 5 squash courts and 1 table, got %d/%d",
			cfg.Venue.SquashCourts, cfg.Venue.TableTennisTables)
	}
	if cfg.Venue.TickInterval != time.Second {
		t.Errorf("expected 1s tick, got %s", cfg.Venue.TickInterval)
	}
	if cfg.Venue.Location != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Venue.Location)
	}
	if cfg.Broker.Enabled() {
		t.Error("expected broker to be disabled without AMQP_URL")
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "etcd")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "etcd") {
		t.Errorf("expected error to name the backend, got %v", err)
	}
}

func TestLoad_MemoryRejectedInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORAGE_BACKEND", "memory")

	if _, err := Load(); err == nil {
		t.Fatal("expected memory backend to be rejected in production")
	}
}

func TestLoad_NoCourts(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SQUASH_COURTS", "0")
	t.Setenv("TABLE_TENNIS_TABLES", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no courts are configured")
	}
}

func TestLoad_BadTimezone(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("VENUE_TIMEZONE", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p@ss", Name: "courts"}
	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db:3306)") {
		t.Errorf("expected default port to be appended, got %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime=true, got %s", dsn)
	}

	d.dsnOverride = "override"
	if d.DSN() != "override" {
		t.Errorf("expected DATABASE_URL override to win, got %s", d.DSN())
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		c := &Config{LogLevel: tt.in}
		if got := c.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8 ,, 192.168.1.0/24")
	got := getEnvList("TRUSTED_PROXIES", nil)
	if strings.Join(got, "|") != "10.0.0.0/8|192.168.1.0/24" {
		t.Errorf("unexpected list %v", got)
	}
	if def := getEnvList("COURTSIDE_UNSET_LIST", []string{"x"}); len(def) != 1 {
		t.Errorf("expected default, got %v", def)
	}
}
