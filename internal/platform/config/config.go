package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultCommerceTimeout      = 15 * time.Second
	defaultCommerceCacheTTL     = 5 * time.Minute
	defaultVATRate              = "0.21"
	defaultVATMode              = "exclusive"
	defaultPaymentMode          = "redirect"
	defaultSessionBackend       = "memory"
	defaultSessionCookie        = "sid"
	defaultSessionTTL           = 30 * 24 * time.Hour
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Commerce    CommerceConfig
	Pricing     PricingConfig
	Payment     PaymentConfig
	Sessions    SessionConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CommerceConfig stores the commerce backend connection settings.
type CommerceConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	CacheTTL       time.Duration
}

// PricingConfig controls VAT and shipping behaviour.
type PricingConfig struct {
	VATRate             decimal.Decimal
	VATMode             string
	ShippingRates       map[string]decimal.Decimal
	DefaultShippingRate decimal.Decimal
}

// PaymentConfig selects the payment settlement behaviour.
type PaymentConfig struct {
	Mode string
}

// SessionConfig controls where shopper sessions are stored.
type SessionConfig struct {
	Backend       string
	CookieName    string
	CookieSecure  bool
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides and environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "STOREFRONT_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Commerce: CommerceConfig{
			BaseURL:        stringWithDefault(lookup, "STOREFRONT_WC_BASE_URL", ""),
			ConsumerKey:    stringWithDefault(lookup, "STOREFRONT_WC_CONSUMER_KEY", ""),
			ConsumerSecret: stringWithDefault(lookup, "STOREFRONT_WC_CONSUMER_SECRET", ""),
			Timeout:        durationWithDefault(lookup, "STOREFRONT_WC_TIMEOUT", defaultCommerceTimeout),
			CacheTTL:       durationWithDefault(lookup, "STOREFRONT_WC_CACHE_TTL", defaultCommerceCacheTTL),
		},
		Pricing: PricingConfig{
			VATRate:             decimalWithDefault(lookup, "STOREFRONT_PRICING_VAT_RATE", defaultVATRate),
			VATMode:             strings.ToLower(stringWithDefault(lookup, "STOREFRONT_PRICING_VAT_MODE", defaultVATMode)),
			ShippingRates:       decimalMapWithDefault(lookup, "STOREFRONT_PRICING_SHIPPING_RATES"),
			DefaultShippingRate: decimalWithDefault(lookup, "STOREFRONT_PRICING_DEFAULT_SHIPPING", "0"),
		},
		Payment: PaymentConfig{
			Mode: strings.ToLower(stringWithDefault(lookup, "STOREFRONT_PAYMENT_MODE", defaultPaymentMode)),
		},
		Sessions: SessionConfig{
			Backend:       strings.ToLower(stringWithDefault(lookup, "STOREFRONT_SESSIONS_BACKEND", defaultSessionBackend)),
			CookieName:    stringWithDefault(lookup, "STOREFRONT_SESSIONS_COOKIE", defaultSessionCookie),
			CookieSecure:  boolWithDefault(lookup, "STOREFRONT_SESSIONS_COOKIE_SECURE", true),
			TTL:           durationWithDefault(lookup, "STOREFRONT_SESSIONS_TTL", defaultSessionTTL),
			RedisAddr:     stringWithDefault(lookup, "STOREFRONT_SESSIONS_REDIS_ADDR", ""),
			RedisPassword: stringWithDefault(lookup, "STOREFRONT_SESSIONS_REDIS_PASSWORD", ""),
			RedisDB:       intWithDefault(lookup, "STOREFRONT_SESSIONS_REDIS_DB", 0),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "STOREFRONT_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Commerce.BaseURL) == "" {
		missing = append(missing, "Commerce.BaseURL")
	}
	if strings.TrimSpace(cfg.Commerce.ConsumerKey) == "" {
		missing = append(missing, "Commerce.ConsumerKey")
	}
	if strings.TrimSpace(cfg.Commerce.ConsumerSecret) == "" {
		missing = append(missing, "Commerce.ConsumerSecret")
	}
	if cfg.Pricing.VATMode != "exclusive" && cfg.Pricing.VATMode != "inclusive" {
		missing = append(missing, "Pricing.VATMode")
	}
	if cfg.Pricing.VATRate.IsNegative() {
		missing = append(missing, "Pricing.VATRate")
	}
	if cfg.Payment.Mode != "redirect" && cfg.Payment.Mode != "simulate" {
		missing = append(missing, "Payment.Mode")
	}
	switch cfg.Sessions.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Sessions.RedisAddr) == "" {
			missing = append(missing, "Sessions.RedisAddr")
		}
	default:
		missing = append(missing, "Sessions.Backend")
	}
	if strings.TrimSpace(cfg.Sessions.CookieName) == "" {
		missing = append(missing, "Sessions.CookieName")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func decimalWithDefault(lookup func(string) (string, bool), key, fallback string) decimal.Decimal {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		if parsed, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return decimal.RequireFromString(fallback)
}

// decimalMapWithDefault parses "NL=0,BE=4.95" style country/rate listings.
func decimalMapWithDefault(lookup func(string) (string, bool), key string) map[string]decimal.Decimal {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	values := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		country := strings.ToUpper(strings.TrimSpace(parts[0]))
		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil || country == "" {
			continue
		}
		values[country] = rate
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
