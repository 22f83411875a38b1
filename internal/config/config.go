package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/innoguard/pkg/validator"
)

// EnvPrefix namespaces every environment override, e.g. INNOGUARD_API_URL.
const EnvPrefix = "innoguard"

type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Server     ServerConfig     `mapstructure:"server"`
	Session    SessionConfig    `mapstructure:"session"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
}

// APIConfig points at the backend. BaseURL is the only setting the screens
// themselves depend on.
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"min=0"`
}

type ServerConfig struct {
	Port                int `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

type SessionConfig struct {
	Backend      string `mapstructure:"backend" validate:"oneof=memory redis"`
	CookieName   string `mapstructure:"cookie_name" validate:"required"`
	TTLMinutes   int    `mapstructure:"ttl_minutes" validate:"min=0"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
	FilePath     string `mapstructure:"file_path"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
}

type BreakerConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	MaxFailures    int  `mapstructure:"max_failures"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// envOverrides are applied on top of the config file.
type envOverrides struct {
	APIURL         string `envconfig:"API_URL"`
	APITimeout     int    `envconfig:"API_TIMEOUT_SECONDS"`
	Port           int    `envconfig:"PORT"`
	SessionBackend string `envconfig:"SESSION_BACKEND"`
	SessionFile    string `envconfig:"SESSION_FILE"`
	RedisURL       string `envconfig:"REDIS_URL"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogJSON        *bool  `envconfig:"LOG_JSON"`
}

// Load reads configuration from path, or from config.yaml in . or ./config
// when path is empty. A missing config file is not an error as long as the
// environment supplies the API base URL.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Session.FilePath == "" {
		cfg.Session.FilePath = defaultSessionFile()
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	val := validator.New()
	if err := val.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := val.ValidateField("log.level", strings.ToLower(cfg.Log.Level), "oneof=trace debug info warn error"); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Session.Backend == "redis" && cfg.Redis.URL == "" {
		return nil, fmt.Errorf("invalid config: redis.url is required when session.backend is redis")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 60)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.cookie_name", "innoguard_session")
	v.SetDefault("session.ttl_minutes", 0)
	v.SetDefault("redis.key_prefix", "innoguard:session:")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.timeout_seconds", 30)
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if env.APIURL != "" {
		c.API.BaseURL = env.APIURL
	}
	if env.APITimeout > 0 {
		c.API.TimeoutSeconds = env.APITimeout
	}
	if env.Port != 0 {
		c.Server.Port = env.Port
	}
	if env.SessionBackend != "" {
		c.Session.Backend = env.SessionBackend
	}
	if env.SessionFile != "" {
		c.Session.FilePath = env.SessionFile
	}
	if env.RedisURL != "" {
		c.Redis.URL = env.RedisURL
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogJSON != nil {
		c.Log.JSON = *env.LogJSON
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "innoguard", "session.yaml")
}

func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
