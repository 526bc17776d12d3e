package envconfig

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-peers/core"
)

func TestLoader_OnlySetVariablesAppear(t *testing.T) {
	t.Setenv("PEERSTEST_STORAGE_DRIVER", "sqlite")
	t.Setenv("PEERSTEST_STORAGE_DSN", "file::memory:?cache=shared")
	t.Setenv("PEERSTEST_CACHE_TTL", "90s")

	raw, err := NewLoader("PEERSTEST").LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if _, ok := raw["service_name"]; ok {
		t.Fatalf("expected unset service name to be absent, got %#v", raw)
	}
	storage, ok := raw["storage"].(map[string]any)
	if !ok || storage["driver"] != "sqlite" || storage["dsn"] != "file::memory:?cache=shared" {
		t.Fatalf("unexpected storage layer %#v", raw["storage"])
	}
	cache, ok := raw["cache"].(map[string]any)
	if !ok || cache["ttl"] != 90*time.Second {
		t.Fatalf("unexpected cache layer %#v", raw["cache"])
	}
	if _, ok := cache["enabled"]; ok {
		t.Fatalf("expected unset cache flag to be absent")
	}
}

func TestLoader_InvalidValueFails(t *testing.T) {
	t.Setenv("PEERSBAD_CACHE_ENABLED", "maybe")
	if _, err := NewLoader("PEERSBAD").LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected parse error for invalid bool")
	}
}

func TestConfigProvider_FeedsServiceConfig(t *testing.T) {
	t.Setenv("PEERSSVC_SERVICE_NAME", "from-env")
	t.Setenv("PEERSSVC_CACHE_ENABLED", "true")
	t.Setenv("PEERSSVC_REDIS_PREFIX", "tenant")

	svc, err := core.NewService(core.Config{}, core.WithConfigProvider(ConfigProvider("PEERSSVC")))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	cfg := svc.Config()
	if cfg.ServiceName != "from-env" {
		t.Fatalf("expected service name from env, got %q", cfg.ServiceName)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != time.Minute {
		t.Fatalf("expected cache enabled with default ttl, got %#v", cfg.Cache)
	}
	if cfg.Redis.Prefix != "tenant" {
		t.Fatalf("expected redis prefix from env, got %q", cfg.Redis.Prefix)
	}
	if cfg.Storage.Driver != core.StorageDriverMemory {
		t.Fatalf("expected default driver, got %q", cfg.Storage.Driver)
	}
}
