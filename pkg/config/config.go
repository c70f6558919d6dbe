package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env    string
	Port   int
	Issuer string

	OAuth    OAuthConfig
	Login    LoginConfig
	Upstream UpstreamConfig
	Sync     SyncConfig
	Sweep    SweepConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
}

// OAuthConfig holds the client registration and token issuance settings.
type OAuthConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectDomains []string
	SigningSecret   string
	SigningKeyID    string
	DefaultScope    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AuthCodeTTL     time.Duration
}

// LoginConfig points unauthenticated users at the login surface.
type LoginConfig struct {
	URL string
}

// UpstreamConfig locates the identity provider collaborators.
type UpstreamConfig struct {
	SessionResolverURL string
	IdentitySyncURL    string
	Timeout            time.Duration
}

// SyncConfig tunes the identity-sync worker queue.
type SyncConfig struct {
	Workers int
	Retries int
}

// SweepConfig controls the expired-row garbage collector.
type SweepConfig struct {
	Interval time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.Issuer = strings.TrimRight(v.GetString("ISSUER_URL"), "/")

	cfg.OAuth = OAuthConfig{
		ClientID:        v.GetString("OAUTH_CLIENT_ID"),
		ClientSecret:    v.GetString("OAUTH_CLIENT_SECRET"),
		RedirectDomains: splitAndTrim(v.GetString("OAUTH_REDIRECT_DOMAINS")),
		SigningSecret:   v.GetString("OAUTH_SIGNING_SECRET"),
		SigningKeyID:    v.GetString("OAUTH_SIGNING_KEY_ID"),
		DefaultScope:    v.GetString("OAUTH_DEFAULT_SCOPE"),
		AccessTokenTTL:  parseDuration(v.GetString("ACCESS_TOKEN_TTL"), time.Hour),
		RefreshTokenTTL: parseDuration(v.GetString("REFRESH_TOKEN_TTL"), 30*24*time.Hour),
		AuthCodeTTL:     parseDuration(v.GetString("AUTH_CODE_TTL"), 10*time.Minute),
	}

	cfg.Login = LoginConfig{URL: v.GetString("LOGIN_URL")}

	cfg.Upstream = UpstreamConfig{
		SessionResolverURL: v.GetString("SESSION_RESOLVER_URL"),
		IdentitySyncURL:    v.GetString("IDENTITY_SYNC_URL"),
		Timeout:            parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 5*time.Second),
	}

	cfg.Sync = SyncConfig{
		Workers: v.GetInt("SYNC_WORKERS"),
		Retries: v.GetInt("SYNC_RETRIES"),
	}

	cfg.Sweep = SweepConfig{
		Interval: parseDuration(v.GetString("SWEEP_INTERVAL"), 15*time.Minute),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("ISSUER_URL", "http://localhost:8080")

	v.SetDefault("OAUTH_CLIENT_ID", "demo")
	v.SetDefault("OAUTH_CLIENT_SECRET", "")
	v.SetDefault("OAUTH_REDIRECT_DOMAINS", "localhost")
	v.SetDefault("OAUTH_SIGNING_SECRET", "dev_signing_secret")
	v.SetDefault("OAUTH_SIGNING_KEY_ID", "bridge-key-1")
	v.SetDefault("OAUTH_DEFAULT_SCOPE", "openid email profile")
	v.SetDefault("ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("AUTH_CODE_TTL", "10m")

	v.SetDefault("LOGIN_URL", "http://localhost:3000/login")
	v.SetDefault("SESSION_RESOLVER_URL", "http://localhost:3000/api/session")
	v.SetDefault("IDENTITY_SYNC_URL", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "5s")

	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_RETRIES", 3)
	v.SetDefault("SWEEP_INTERVAL", "15m")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "oauth_bridge")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
