package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName     string
	AppEnv      string
	AppURL      string
	Port        string
	ContentPath string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret            string
	JWTExpiry            time.Duration
	TokenMagicLinkExpiry time.Duration

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN   string
	MetricsUser string
	MetricsPass string

	// Storage (optional, S3-compatible). Exports are archived and the demo
	// seed can be read from here when a bucket is configured.
	S3Region               string
	S3Bucket               string
	S3AccessKey            string
	S3SecretKey            string
	S3Endpoint             string
	S3PresignExpiryPrivate time.Duration

	// Events (optional)
	NATSURL           string
	NATSSubjectPrefix string

	// Demo
	DemoEnabled      bool
	DemoResetCommand string
	DemoResetTimeout time.Duration
	DemoSeedS3Key    string

	// Period rollover
	RolloverEnabled  bool
	RolloverTimezone string

	// Limits
	RateLimitRPS   float64
	RateLimitBurst int
	FeedPageSize   int

	// Proxies whose X-Forwarded-For header is believed. Empty means the
	// server is reached directly and forwarding headers are ignored.
	TrustedProxies []netip.Prefix
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName:     envString("APP_NAME", "RespectCircle"),
		AppEnv:      envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:      envRequired("APP_URL"), // Required: base URL for email links and OAuth redirects
		Port:        envString("PORT", "8090"),
		ContentPath: envString("CONTENT_PATH", "content"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/respectcircle.db?_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:            envRequired("JWT_SECRET"),
		JWTExpiry:            envDuration("JWT_EXPIRY", 168*time.Hour),               // 7 days
		TokenMagicLinkExpiry: envDuration("TOKEN_MAGIC_LINK_EXPIRY", 10*time.Minute), // 10 minutes

		// OAuth
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Observability
		SentryDSN:   envString("SENTRY_DSN", ""),
		MetricsUser: envString("METRICS_USER", ""),
		MetricsPass: envString("METRICS_PASS", ""),

		// Storage
		S3Region:               envString("S3_REGION", "us-east-1"),
		S3Bucket:               envString("S3_BUCKET", ""),
		S3AccessKey:            envString("S3_ACCESS_KEY", ""),
		S3SecretKey:            envString("S3_SECRET_KEY", ""),
		S3Endpoint:             envString("S3_ENDPOINT", ""), // Optional: for non-AWS providers
		S3PresignExpiryPrivate: envDuration("S3_PRESIGN_EXPIRY_PRIVATE", 1*time.Hour),

		// Events
		NATSURL:           envString("NATS_URL", ""),
		NATSSubjectPrefix: envString("NATS_SUBJECT_PREFIX", "respectcircle"),

		// Demo
		DemoEnabled:      envBool("DEMO_ENABLED", false),
		DemoResetCommand: envString("DEMO_RESET_COMMAND", ""),
		DemoResetTimeout: envDuration("DEMO_RESET_TIMEOUT", 30*time.Second),
		DemoSeedS3Key:    envString("DEMO_SEED_S3_KEY", ""),

		// Period rollover
		RolloverEnabled:  envBool("ROLLOVER_ENABLED", true),
		RolloverTimezone: envString("ROLLOVER_TIMEZONE", "UTC"),

		// Limits
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 30),
		FeedPageSize:   envInt("FEED_PAGE_SIZE", 50),
		TrustedProxies: envPrefixes("TRUSTED_PROXIES"),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows some services (like email) to use fallback modes for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.ResendAPIKey == "" {
		slog.Error("production deployment requires RESEND_API_KEY",
			"hint", "set APP_ENV=development for local testing with email log mode")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		slog.Warn("config invalid positive int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		slog.Warn("config invalid positive number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envPrefixes reads a comma separated list of CIDR ranges or single
// addresses. Invalid entries are skipped with a warning.
func envPrefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, entry := range strings.Split(os.Getenv(key), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		p, err := parsePrefix(entry)
		if err != nil {
			slog.Warn("config invalid address, skipping", "key", key, "value", entry, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}

// Location resolves RolloverTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.RolloverTimezone)
	if err != nil {
		slog.Warn("config invalid timezone, using UTC", "key", "ROLLOVER_TIMEZONE", "value", c.RolloverTimezone)
		return time.UTC
	}
	return loc
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
// Safe to expose in ctx, templates and client-facing contexts.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName: c.AppName,
		AppEnv:  c.AppEnv,
		AppURL:  c.AppURL,
		Port:    c.Port,

		EmailFrom: c.EmailFrom,

		GoogleClientID: c.GoogleClientID,

		DemoEnabled:  c.DemoEnabled,
		FeedPageSize: c.FeedPageSize,

		S3Endpoint: c.S3Endpoint, // Needed for CSP policies
	}
}
