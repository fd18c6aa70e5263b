package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.StoreDriver != DriverMongo || cfg.DispatcherWorkers != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.TokenTTL != 24*time.Hour || cfg.Redis.NonceTTL != 10*time.Minute {
		t.Fatalf("unexpected durations token=%s nonce=%s", cfg.TokenTTL, cfg.Redis.NonceTTL)
	}
	if cfg.Mongo.Database != "boosting_marketplace" || cfg.Redis.Addr != "" {
		t.Fatalf("unexpected store defaults %+v %+v", cfg.Mongo, cfg.Redis)
	}
	if cfg.Websocket.SendBuffer != 64 || cfg.Websocket.PongWait != time.Minute {
		t.Fatalf("unexpected websocket defaults %+v", cfg.Websocket)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("default env should be development")
	}
	if cfg.Admin.Enabled() {
		t.Fatal("admin bootstrap should be off by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":         "secret",
		"ENV":                "production",
		"STORE_DRIVER":       "postgres",
		"POSTGRES_DSN":       "postgres://u:p@db:5432/app",
		"REDIS_ADDR":         "redis:6379",
		"WS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres || cfg.Postgres.DSN != "postgres://u:p@db:5432/app" {
		t.Fatalf("unexpected postgres settings %+v", cfg.Postgres)
	}
	if len(cfg.Websocket.AllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.Websocket.AllowedOrigins)
	}
	if cfg.IsDevelopment() {
		t.Fatal("production must not be treated as development")
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"STORE_DRIVER":       "sqlite",
		"DISPATCHER_WORKERS": "0",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET", "STORE_DRIVER", "DISPATCHER_WORKERS"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_AdminBootstrap(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":     "secret",
		"ADMIN_EMAIL":    "root@example.com",
		"ADMIN_PASSWORD": "long-enough",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Admin.Enabled() || cfg.Admin.Email != "root@example.com" {
		t.Fatalf("unexpected admin settings %+v", cfg.Admin)
	}

	_, err = load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":  "secret",
		"ADMIN_EMAIL": "root@example.com",
	}))
	if err == nil || !strings.Contains(err.Error(), "ADMIN_PASSWORD") {
		t.Fatalf("expected ADMIN_PASSWORD error, got %v", err)
	}
}
