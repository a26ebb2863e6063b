package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("driver = %q, want sqlite", cfg.DB.Driver)
	}
	if cfg.Stats.HoursPerEvent != 4 {
		t.Fatalf("hours per event = %d, want 4", cfg.Stats.HoursPerEvent)
	}
	if cfg.Stats.ImpactPointsPerEvent != 10 {
		t.Fatalf("impact points = %d, want 10", cfg.Stats.ImpactPointsPerEvent)
	}
	if cfg.Notify.Queue != "volunteer.notifications" {
		t.Fatalf("queue = %q", cfg.Notify.Queue)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestLoadDefaultsPortPerDriver(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{driver: "mysql", want: "3306"},
		{driver: "postgres", want: "5432"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv("DB_DRIVER", tt.driver)
			t.Setenv("DB_USER", "app")
			t.Setenv("DB_PORT", "")

			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if cfg.DB.Port != tt.want {
				t.Fatalf("port = %q, want %q", cfg.DB.Port, tt.want)
			}
		})
	}
}

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg, err := LoadRateLimitConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capacity != 1 {
		t.Fatalf("capacity = %d, want 1", cfg.Capacity)
	}
	if cfg.TTL != 10*time.Second {
		t.Fatalf("ttl = %s, want 10s", cfg.TTL)
	}
}

func TestCacheConfigMethodSet(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")

	cfg, err := LoadCacheConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	set := cfg.MethodSet()
	if !set["GET"] || !set["HEAD"] || set["POST"] {
		t.Fatalf("method set = %v", set)
	}
}
