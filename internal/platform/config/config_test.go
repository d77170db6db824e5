package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"STOREFRONT_WC_BASE_URL":        "https://shop.example.com",
		"STOREFRONT_WC_CONSUMER_KEY":    "ck_test",
		"STOREFRONT_WC_CONSUMER_SECRET": "cs_test",
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Commerce.Timeout != defaultCommerceTimeout {
		t.Errorf("unexpected commerce timeout: %s", cfg.Commerce.Timeout)
	}
	if cfg.Commerce.CacheTTL != defaultCommerceCacheTTL {
		t.Errorf("unexpected commerce cache ttl: %s", cfg.Commerce.CacheTTL)
	}
	if got := cfg.Pricing.VATRate.String(); got != "0.21" {
		t.Errorf("expected default vat rate 0.21, got %s", got)
	}
	if cfg.Pricing.VATMode != "exclusive" {
		t.Errorf("expected default vat mode exclusive, got %s", cfg.Pricing.VATMode)
	}
	if cfg.Payment.Mode != "redirect" {
		t.Errorf("expected default payment mode redirect, got %s", cfg.Payment.Mode)
	}
	if cfg.Sessions.Backend != "memory" {
		t.Errorf("expected default session backend memory, got %s", cfg.Sessions.Backend)
	}
	if cfg.Sessions.CookieName != "sid" {
		t.Errorf("expected default cookie name sid, got %s", cfg.Sessions.CookieName)
	}
	if cfg.Sessions.TTL != defaultSessionTTL {
		t.Errorf("unexpected session ttl: %s", cfg.Sessions.TTL)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.CleanupBatchSize != defaultIdempotencyBatchSize {
		t.Errorf("unexpected default cleanup batch size: %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_SERVER_PORT"] = "9090"
	env["STOREFRONT_WC_CACHE_TTL"] = "30s"
	env["STOREFRONT_PRICING_VAT_RATE"] = "0.09"
	env["STOREFRONT_PRICING_VAT_MODE"] = "INCLUSIVE"
	env["STOREFRONT_PRICING_SHIPPING_RATES"] = "nl=0, be=4.95,DE=6.95"
	env["STOREFRONT_PRICING_DEFAULT_SHIPPING"] = "9.95"
	env["STOREFRONT_PAYMENT_MODE"] = "simulate"
	env["STOREFRONT_SESSIONS_BACKEND"] = "redis"
	env["STOREFRONT_SESSIONS_REDIS_ADDR"] = "localhost:6379"
	env["STOREFRONT_SESSIONS_REDIS_DB"] = "2"
	env["STOREFRONT_SESSIONS_COOKIE_SECURE"] = "false"

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Commerce.CacheTTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %s", cfg.Commerce.CacheTTL)
	}
	if got := cfg.Pricing.VATRate.String(); got != "0.09" {
		t.Errorf("expected vat rate 0.09, got %s", got)
	}
	if cfg.Pricing.VATMode != "inclusive" {
		t.Errorf("expected vat mode inclusive, got %s", cfg.Pricing.VATMode)
	}
	if len(cfg.Pricing.ShippingRates) != 3 {
		t.Fatalf("expected 3 shipping rates, got %v", cfg.Pricing.ShippingRates)
	}
	if got := cfg.Pricing.ShippingRates["BE"].String(); got != "4.95" {
		t.Errorf("expected BE rate 4.95, got %s", got)
	}
	if got := cfg.Pricing.DefaultShippingRate.String(); got != "9.95" {
		t.Errorf("expected default shipping 9.95, got %s", got)
	}
	if cfg.Payment.Mode != "simulate" {
		t.Errorf("expected payment mode simulate, got %s", cfg.Payment.Mode)
	}
	if cfg.Sessions.Backend != "redis" {
		t.Errorf("expected session backend redis, got %s", cfg.Sessions.Backend)
	}
	if cfg.Sessions.RedisDB != 2 {
		t.Errorf("expected redis db 2, got %d", cfg.Sessions.RedisDB)
	}
	if cfg.Sessions.CookieSecure {
		t.Errorf("expected cookie secure disabled")
	}
}

func TestLoadMissingCommerceCredentials(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_WC_BASE_URL": "https://shop.example.com",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := verr.Fields()
	if len(fields) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", fields)
	}
}

func TestLoadRedisBackendRequiresAddr(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_SESSIONS_BACKEND"] = "redis"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fields := verr.Fields(); len(fields) != 1 || fields[0] != "Sessions.RedisAddr" {
		t.Fatalf("expected Sessions.RedisAddr, got %v", fields)
	}
}

func TestLoadInvalidPaymentMode(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_PAYMENT_MODE"] = "webhook"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local overrides\nexport STOREFRONT_SERVER_PORT=7070\nSTOREFRONT_WC_BASE_URL=\"https://dotenv.example.com\"\nSTOREFRONT_WC_CONSUMER_KEY=ck_dotenv\nSTOREFRONT_WC_CONSUMER_SECRET='cs_dotenv'\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv, got %s", cfg.Server.Port)
	}
	if cfg.Commerce.BaseURL != "https://dotenv.example.com" {
		t.Errorf("unexpected base url: %s", cfg.Commerce.BaseURL)
	}
	if cfg.Commerce.ConsumerSecret != "cs_dotenv" {
		t.Errorf("unexpected consumer secret: %s", cfg.Commerce.ConsumerSecret)
	}
}

func TestEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("STOREFRONT_SERVER_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	env := baseEnv()
	env["STOREFRONT_SERVER_PORT"] = "6060"

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map port 6060, got %s", cfg.Server.Port)
	}
}
