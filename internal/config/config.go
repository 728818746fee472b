package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	App        AppConfig        `koanf:"app"`
	Server     ServerConfig     `koanf:"server"`
	Mongo      MongoConfig      `koanf:"mongo"`
	Storage    StorageConfig    `koanf:"storage"`
	Auth       AuthConfig       `koanf:"auth"`
	Firebase   FirebaseConfig   `koanf:"firebase"`
	Stripe     StripeConfig     `koanf:"stripe"`
	Redis      RedisConfig      `koanf:"redis"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	CORS       CORSConfig       `koanf:"cors"`
	Log        LogConfig        `koanf:"log"`
	Membership MembershipConfig `koanf:"membership"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// StorageConfig applies to the in-memory store used when no Mongo URI is set.
// An empty DataDir keeps everything in memory only.
type StorageConfig struct {
	DataDir string `koanf:"data_dir"`
}

type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	JWTExpiration time.Duration `koanf:"jwt_expiration"`
	CookieName    string        `koanf:"cookie_name"`
	// AllowUnverifiedLogin lets POST /jwt mint a session from a bare email.
	// Only meant for local development without Firebase.
	AllowUnverifiedLogin bool `koanf:"allow_unverified_login"`
}

type FirebaseConfig struct {
	ProjectID       string `koanf:"project_id"`
	CredentialsJSON string `koanf:"credentials_json"`
}

type StripeConfig struct {
	SecretKey string `koanf:"secret_key"`
	Currency  string `koanf:"currency"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
	MaxAge         int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type MembershipConfig struct {
	BronzePostLimit int `koanf:"bronze_post_limit"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "BrainShare",
		"app.environment": "development",

		"server.address":          ":4000",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.shutdown_timeout": "15s",
		"server.request_timeout":  "10s",

		"mongo.database": "BrainShareDB",

		"auth.jwt_secret":             defaultJWTSecret,
		"auth.jwt_expiration":         "24h",
		"auth.cookie_name":            "token",
		"auth.allow_unverified_login": false,

		"stripe.currency": "usd",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,

		"rate_limit.enabled":  false,
		"rate_limit.requests": 60,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    10,

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.max_age":         300,

		"log.level":  "info",
		"log.format": "json",

		"membership.bronze_post_limit": 5,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"ENVIRONMENT":               "app.environment",
	"SERVER_ADDRESS":            "server.address",
	"REQUEST_TIMEOUT":           "server.request_timeout",
	"MONGO_URI":                 "mongo.uri",
	"MONGO_DB":                  "mongo.database",
	"DATA_DIR":                  "storage.data_dir",
	"JWT_SECRET":                "auth.jwt_secret",
	"JWT_EXPIRATION":            "auth.jwt_expiration",
	"AUTH_COOKIE_NAME":          "auth.cookie_name",
	"ALLOW_UNVERIFIED_LOGIN":    "auth.allow_unverified_login",
	"FIREBASE_PROJECT_ID":       "firebase.project_id",
	"FIREBASE_CREDENTIALS_JSON": "firebase.credentials_json",
	"STRIPE_SECRET_KEY":         "stripe.secret_key",
	"STRIPE_CURRENCY":           "stripe.currency",
	"REDIS_URL":                 "redis.url",
	"RATE_LIMIT_ENABLED":        "rate_limit.enabled",
	"RATE_LIMIT_REQUESTS":       "rate_limit.requests",
	"RATE_LIMIT_WINDOW":         "rate_limit.window",
	"RATE_LIMIT_BURST":          "rate_limit.burst",
	"CORS_ALLOWED_ORIGINS":      "cors.allowed_origins",
	"LOG_LEVEL":                 "log.level",
	"LOG_FORMAT":                "log.format",
	"BRONZE_POST_LIMIT":         "membership.bronze_post_limit",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed in production")
	}
	if c.IsProduction() && c.Auth.AllowUnverifiedLogin {
		return fmt.Errorf("ALLOW_UNVERIFIED_LOGIN cannot be enabled in production")
	}
	if c.Auth.JWTExpiration <= 0 {
		return fmt.Errorf("auth.jwt_expiration must be positive")
	}
	if c.Auth.CookieName == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}

	// Session cookies are sent cross-site, so the CORS policy allows
	// credentials and cannot use a wildcard origin.
	for _, origin := range c.CORS.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS wildcard '*' cannot be used with credentials")
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive")
	}
	if c.Membership.BronzePostLimit < 0 {
		return fmt.Errorf("membership.bronze_post_limit cannot be negative")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UseMongo reports whether the Mongo backend is configured. Without it the
// server falls back to the in-memory store.
func (c *Config) UseMongo() bool {
	return c.Mongo.URI != ""
}
