package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SNAPMARKET_APP_ENV", "dev")
	t.Setenv("SNAPMARKET_APP_PORT", "8080")
	t.Setenv("SNAPMARKET_DB_DSN", "host=localhost user=app dbname=snapmarket sslmode=disable")
	t.Setenv("SNAPMARKET_REDIS_URL", "localhost:6379")
	t.Setenv("SNAPMARKET_JWT_SECRET", "secret")
	t.Setenv("SNAPMARKET_JWT_ISSUER", "snapmarket")
	t.Setenv("SNAPMARKET_S3_BUCKET", "snapmarket-entries")
	t.Setenv("SNAPMARKET_CHECKOUT_BASE_URL", "https://checkout.example.com")
	t.Setenv("SNAPMARKET_CHECKOUT_API_KEY", "ck_test")
	t.Setenv("SNAPMARKET_CHECKOUT_SIGNING_SECRET", "whsec_test")
	t.Setenv("SNAPMARKET_MAIL_BASE_URL", "https://mail.example.com")
	t.Setenv("SNAPMARKET_MAIL_API_KEY", "mk_test")
	t.Setenv("SNAPMARKET_MAIL_SENDER", "noreply@example.com")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", cfg.App.LogLevel)
	}
	if !cfg.App.IsDev() || cfg.App.IsProd() {
		t.Fatal("expected dev environment")
	}
	if cfg.Checkout.Currency != "JPY" {
		t.Fatalf("expected default currency, got %q", cfg.Checkout.Currency)
	}
	if cfg.Retention.UnselectedGrace != 720*time.Hour {
		t.Fatalf("unexpected unselected grace: %s", cfg.Retention.UnselectedGrace)
	}
	if cfg.Retention.PurchasedRetention != 168*time.Hour {
		t.Fatalf("unexpected purchased retention: %s", cfg.Retention.PurchasedRetention)
	}
	if cfg.Cron.Interval != 24*time.Hour {
		t.Fatalf("unexpected cron interval: %s", cfg.Cron.Interval)
	}
}

func TestLoad_BuildsDSNFromParts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNAPMARKET_DB_DSN", "")
	t.Setenv("SNAPMARKET_DB_HOST", "db.internal")
	t.Setenv("SNAPMARKET_DB_USER", "app")
	t.Setenv("SNAPMARKET_DB_PASSWORD", "hunter2")
	t.Setenv("SNAPMARKET_DB_NAME", "snapmarket")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "host=db.internal port=5432 user=app password=hunter2 dbname=snapmarket sslmode=disable"
	if cfg.DB.DSN != want {
		t.Fatalf("unexpected DSN: %q", cfg.DB.DSN)
	}
}

func TestLoad_RequiresDatabaseSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNAPMARKET_DB_DSN", "")
	t.Setenv("SNAPMARKET_DB_HOST", "")
	t.Setenv("SNAPMARKET_DB_USER", "")
	t.Setenv("SNAPMARKET_DB_NAME", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without database settings")
	}
}
