// Package config loads the service settings from environment variables.
// Load reads the process environment; LoadFrom takes any lookup function so
// tests and tools can feed a map. Every value has a default except JWT_SECRET.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS, comma separated; empty allows any origin
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines bearer token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string        // JWT_SECRET, HMAC key (>= 32 bytes)
	JWTIssuer  string        // JWT_ISSUER, "iss" claim
	TokenTTL   time.Duration // TOKEN_TTL, access token lifetime
	BcryptCost int           // BCRYPT_COST, 4..31
}

// SeedConfig controls startup seeding of roles/permissions and an optional
// administrator account.
type SeedConfig struct {
	Roles         bool   // SEED_ROLES
	AdminName     string // ADMIN_NAME
	AdminEmail    string // ADMIN_EMAIL (admin is created only when set)
	AdminPassword string // ADMIN_PASSWORD
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // PORT
	ReadTimeout       time.Duration // READ_TIMEOUT
	ReadHeaderTimeout time.Duration // READ_HEADER_TIMEOUT
	WriteTimeout      time.Duration // WRITE_TIMEOUT
	IdleTimeout       time.Duration // IDLE_TIMEOUT
	MaxHeaderBytes    int           // MAX_HEADER_BYTES
	GinMode           string        // GIN_MODE: debug|release|test

	// Logging / Docs
	LogLevel       string // LOG_LEVEL: debug|info|warn|error|fatal|panic
	LogPretty      bool   // LOG_PRETTY
	SwaggerEnabled bool   // SWAGGER_ENABLED
	APIBasePath    string // API_BASE_PATH

	// App
	AppDebug bool   // APP_DEBUG: expose failure origin in 500 envelopes
	DBPath   string // DB_PATH

	Auth AuthConfig

	// Pagination
	DefaultPerPage int // DEFAULT_PER_PAGE
	MaxPerPage     int // MAX_PER_PAGE

	Seed SeedConfig

	// Rate limiting
	RateRPS   float64 // RATE_RPS, tokens per second
	RateBurst int     // RATE_BURST, bucket size

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration // IDEMPOTENCY_TTL

	OTEL OTELConfig
}

// LookupFunc returns the value of an environment key; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a Config from lookup, applies defaults and normalization,
// and validates the result. The returned Config is filled in even on error.
func LoadFrom(lookup LookupFunc) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(strings.TrimSpace(e.str("LOG_LEVEL", "info"))),
		LogPretty:      e.bool("LOG_PRETTY", false),
		SwaggerEnabled: e.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api")),

		AppDebug: e.bool("APP_DEBUG", false),
		DBPath:   e.str("DB_PATH", "app.db"),

		Auth: AuthConfig{
			JWTSecret:  e.str("JWT_SECRET", ""),
			JWTIssuer:  e.str("JWT_ISSUER", "go-product-api"),
			TokenTTL:   e.dur("TOKEN_TTL", 24*time.Hour),
			BcryptCost: e.int("BCRYPT_COST", 10),
		},

		DefaultPerPage: e.int("DEFAULT_PER_PAGE", 15),
		MaxPerPage:     e.int("MAX_PER_PAGE", 100),

		Seed: SeedConfig{
			Roles:         e.bool("SEED_ROLES", true),
			AdminName:     e.str("ADMIN_NAME", "Administrator"),
			AdminEmail:    strings.TrimSpace(e.str("ADMIN_EMAIL", "")),
			AdminPassword: e.str("ADMIN_PASSWORD", ""),
		},

		RateRPS:   e.float("RATE_RPS", 5.0),
		RateBurst: e.int("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.bool("ENABLE_HSTS", false),
			HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "go-product-api"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be one of: debug, info, warn, error, fatal, panic", c.LogLevel))
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")

	check(len(c.Auth.JWTSecret) >= 32, "JWT_SECRET must be at least 32 characters")
	check(c.Auth.TokenTTL > 0, "TOKEN_TTL must be > 0")
	check(c.Auth.BcryptCost >= 4 && c.Auth.BcryptCost <= 31, "BCRYPT_COST must be between 4 and 31")

	check(c.DefaultPerPage >= 1, "DEFAULT_PER_PAGE must be >= 1")
	check(c.MaxPerPage >= c.DefaultPerPage, "MAX_PER_PAGE must be >= DEFAULT_PER_PAGE")

	check(c.Seed.AdminEmail == "" || len(c.Seed.AdminPassword) >= 6,
		"ADMIN_PASSWORD must be at least 6 characters when ADMIN_EMAIL is set")

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// Addr is the listen address for net/http.
func (c Config) Addr() string { return ":" + c.Port }

// env reads typed values through a lookup. Unset, empty or unparsable values
// fall back to the default.
type env struct {
	lookup LookupFunc
}

func (e env) raw(k string) (string, bool) {
	v, ok := e.lookup(k)
	return v, ok && v != ""
}

func (e env) str(k, def string) string {
	if v, ok := e.raw(k); ok {
		return v
	}
	return def
}

func (e env) float(k string, def float64) float64 {
	if v, ok := e.raw(k); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func (e env) int(k string, def int) int {
	if v, ok := e.raw(k); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func (e env) bool(k string, def bool) bool {
	if v, ok := e.raw(k); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func (e env) dur(k string, def time.Duration) time.Duration {
	if v, ok := e.raw(k); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath yields "/" or a path with one leading and no trailing slash.
func normalizeBasePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}
