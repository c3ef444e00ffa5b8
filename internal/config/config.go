// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RatePolicy is "limit requests per window".
type RatePolicy struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type Config struct {
	AppPort  string `yaml:"app_port"`
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`

	DatabaseDriver string `yaml:"database_driver"`
	DatabaseDSN    string `yaml:"database_dsn"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	DataDir string `yaml:"data_dir"`

	FacePPKey    string `yaml:"facepp_key"`
	FacePPSecret string `yaml:"facepp_secret"`
	FacePPURL    string `yaml:"facepp_url"`

	AIAPIKey  string `yaml:"ai_api_key"`
	AIBaseURL string `yaml:"ai_base_url"`
	AIModelID string `yaml:"ai_model_id"`

	TurnstileSecretKey string `yaml:"turnstile_secret_key"`
	TurnstileSiteKey   string `yaml:"turnstile_site_key"`

	AdminUsername     string `yaml:"admin_username"`
	AdminPassword     string `yaml:"admin_password"`
	AdminPasswordHash string `yaml:"admin_password_hash"`

	GitHubClientID     string   `yaml:"github_client_id"`
	GitHubClientSecret string   `yaml:"github_client_secret"`
	GitHubRedirectURL  string   `yaml:"github_redirect_url"`
	GitHubAllowedUsers []string `yaml:"github_allowed_users"`

	OIDCIssuer       string   `yaml:"oidc_issuer"`
	OIDCClientID     string   `yaml:"oidc_client_id"`
	OIDCClientSecret string   `yaml:"oidc_client_secret"`
	OIDCRedirectURL  string   `yaml:"oidc_redirect_url"`
	OIDCAllowedUsers []string `yaml:"oidc_allowed_users"`

	RetentionMonths int    `yaml:"retention_months"`
	CleanupCron     string `yaml:"cleanup_cron"`

	SessionTTL   time.Duration `yaml:"session_ttl"`
	CookieSecure bool          `yaml:"cookie_secure"`

	RateLimits map[string]RatePolicy `yaml:"rate_limits"`
}

// Route names used as rate-limit policy keys.
const (
	RouteScore   = "score"
	RouteFortune = "fortune"
	RouteImage   = "image"
	RouteImages  = "images"
	RouteCleanup = "cleanup"
	RouteVerify  = "verify"
	RouteAuth    = "auth"
)

func defaultRateLimits() map[string]RatePolicy {
	return map[string]RatePolicy{
		RouteScore:   {Limit: 10, Window: time.Minute},
		RouteFortune: {Limit: 10, Window: time.Minute},
		RouteImage:   {Limit: 50, Window: time.Minute},
		RouteImages:  {Limit: 50, Window: time.Minute},
		RouteCleanup: {Limit: 5, Window: time.Minute},
		RouteVerify:  {Limit: 5, Window: time.Minute},
		RouteAuth:    {Limit: 20, Window: time.Minute},
	}
}

// Load reads CONFIG_FILE (if set), then the environment, applies defaults
// and validates the result.
func Load() (Config, error) {
	var cfg Config
	cfg.CookieSecure = true

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("APP_PORT", &cfg.AppPort)
	boolean("DEBUG", &cfg.Debug)
	str("LOG_LEVEL", &cfg.LogLevel)

	str("DATABASE_DRIVER", &cfg.DatabaseDriver)
	str("DATABASE_DSN", &cfg.DatabaseDSN)

	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	integer("REDIS_DB", &cfg.RedisDB)

	str("DATA_DIR", &cfg.DataDir)

	str("FACEPP_KEY", &cfg.FacePPKey)
	str("FACEPP_SECRET", &cfg.FacePPSecret)
	str("FACEPP_URL", &cfg.FacePPURL)

	str("AI_API_KEY", &cfg.AIAPIKey)
	str("AI_BASE_URL", &cfg.AIBaseURL)
	str("AI_MODEL_ID", &cfg.AIModelID)

	str("TURNSTILE_SECRET_KEY", &cfg.TurnstileSecretKey)
	str("TURNSTILE_SITE_KEY", &cfg.TurnstileSiteKey)

	str("ADMIN_USERNAME", &cfg.AdminUsername)
	str("ADMIN_PASSWORD", &cfg.AdminPassword)
	str("ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)

	str("GITHUB_CLIENT_ID", &cfg.GitHubClientID)
	str("GITHUB_CLIENT_SECRET", &cfg.GitHubClientSecret)
	str("GITHUB_REDIRECT_URL", &cfg.GitHubRedirectURL)
	list("GITHUB_ALLOWED_USERS", &cfg.GitHubAllowedUsers)

	str("OIDC_ISSUER", &cfg.OIDCIssuer)
	str("OIDC_CLIENT_ID", &cfg.OIDCClientID)
	str("OIDC_CLIENT_SECRET", &cfg.OIDCClientSecret)
	str("OIDC_REDIRECT_URL", &cfg.OIDCRedirectURL)
	list("OIDC_ALLOWED_USERS", &cfg.OIDCAllowedUsers)

	integer("RETENTION_MONTHS", &cfg.RetentionMonths)
	str("CLEANUP_CRON", &cfg.CleanupCron)

	var ttlHours int
	integer("SESSION_TTL_HOURS", &ttlHours)
	if ttlHours > 0 {
		cfg.SessionTTL = time.Duration(ttlHours) * time.Hour
	}
	boolean("COOKIE_SECURE", &cfg.CookieSecure)

	for name := range defaultRateLimits() {
		key := "RATE_LIMIT_" + strings.ToUpper(name)
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		p, err := ParseRatePolicy(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
			continue
		}
		if cfg.RateLimits == nil {
			cfg.RateLimits = map[string]RatePolicy{}
		}
		cfg.RateLimits[name] = p
	}

	return errors.Join(errs...)
}

// ParseRatePolicy parses "limit/seconds", e.g. "10/60".
func ParseRatePolicy(s string) (RatePolicy, error) {
	limit, window, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return RatePolicy{}, errors.New("expected limit/seconds")
	}
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || l < 1 {
		return RatePolicy{}, errors.New("invalid limit")
	}
	w, err := strconv.Atoi(strings.TrimSpace(window))
	if err != nil || w < 1 {
		return RatePolicy{}, errors.New("invalid window seconds")
	}
	return RatePolicy{Limit: l, Window: time.Duration(w) * time.Second}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyDefaults(c *Config) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = "postgres"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.DatabaseDriver == "sqlite" && c.DatabaseDSN == "" {
		c.DatabaseDSN = "file:" + c.DataDir + "/face-score.db"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.FacePPURL == "" {
		c.FacePPURL = "https://api-us.faceplusplus.com/facepp/v3/detect"
	}
	if c.AIModelID == "" {
		c.AIModelID = "@cf/meta/llama-3-8b-instruct"
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.RetentionMonths == 0 {
		c.RetentionMonths = 6
	}
	if c.CleanupCron == "" {
		c.CleanupCron = "@daily"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
	limits := defaultRateLimits()
	for name, p := range c.RateLimits {
		limits[name] = p
	}
	c.RateLimits = limits
}

func validate(c *Config) error {
	port, err := strconv.Atoi(c.AppPort)
	if err != nil || port <= 0 || port > 65535 {
		return errors.New("config: APP_PORT is invalid")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("config: DATABASE_DSN is required")
	}
	if c.RetentionMonths < 1 {
		return errors.New("config: RETENTION_MONTHS must be positive")
	}
	if c.SessionTTL < time.Minute {
		return errors.New("config: session ttl too short")
	}
	for name, p := range c.RateLimits {
		if p.Limit < 1 || p.Window < time.Second {
			return fmt.Errorf("config: rate limit %q is invalid", name)
		}
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		return errors.New("config: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}
	return nil
}

// Policy returns the rate policy for a route, falling back to 60/min.
func (c Config) Policy(route string) RatePolicy {
	if p, ok := c.RateLimits[route]; ok {
		return p
	}
	return RatePolicy{Limit: 60, Window: time.Minute}
}
