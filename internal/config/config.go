// Package config carrega a configuração do marketplace (config.yaml, .env e
// variáveis MARKETPLACE_*) e inicializa o logger global.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Matching  MatchingConfig  `yaml:"matching" mapstructure:"matching"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Jobs      JobsConfig      `yaml:"jobs" mapstructure:"jobs"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DSN             string        `yaml:"dsn" mapstructure:"dsn"`
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	Name            string        `yaml:"name" mapstructure:"name"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	SecretID        string        `yaml:"secret_id" mapstructure:"secret_id"`
	SSLDisable      bool          `yaml:"ssl_disable" mapstructure:"ssl_disable"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// AuthConfig configures token issuance and password hashing.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer       string        `yaml:"issuer" mapstructure:"issuer"`
	AccessTTL    time.Duration `yaml:"access_ttl" mapstructure:"access_ttl"`
	RefreshTTL   time.Duration `yaml:"refresh_ttl" mapstructure:"refresh_ttl"`
	CookieSecure bool          `yaml:"cookie_secure" mapstructure:"cookie_secure"`
	BcryptCost   int           `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// RateLimitConfig configures the registration rate limiter.
type RateLimitConfig struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"`
	Requests  int           `yaml:"requests" mapstructure:"requests"`
	Window    time.Duration `yaml:"window" mapstructure:"window"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	Redis     RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds connection settings for the shared limiter store.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// MatchingConfig configures the scoring strategy.
type MatchingConfig struct {
	Threshold float64         `yaml:"threshold" mapstructure:"threshold"`
	Weights   MatchingWeights `yaml:"weights" mapstructure:"weights"`
}

// MatchingWeights are the score deltas of each criterion. Zero disables a criterion.
type MatchingWeights struct {
	MaterialType     float64 `yaml:"material_type" mapstructure:"material_type"`
	MaterialGrade    float64 `yaml:"material_grade" mapstructure:"material_grade"`
	DeliveryLocation float64 `yaml:"delivery_location" mapstructure:"delivery_location"`
	VolumeCoverage   float64 `yaml:"volume_coverage" mapstructure:"volume_coverage"`
}

// NotifyConfig configures domain event sinks.
type NotifyConfig struct {
	WebhookURL string      `yaml:"webhook_url" mapstructure:"webhook_url"`
	Kafka      KafkaConfig `yaml:"kafka" mapstructure:"kafka"`
}

// KafkaConfig configures the Kafka event sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// JobsConfig configures background jobs.
type JobsConfig struct {
	ExpirySchedule string `yaml:"expiry_schedule" mapstructure:"expiry_schedule"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env é opcional; variáveis já exportadas têm precedência.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MARKETPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.user", "postgres")
	v.SetDefault("store.password", "")
	v.SetDefault("store.secret_id", "")
	v.SetDefault("store.ssl_disable", false)
	v.SetDefault("store.name", "marketplace")
	v.SetDefault("store.max_idle_conns", 10)
	v.SetDefault("store.max_open_conns", 100)
	v.SetDefault("store.conn_max_lifetime", time.Hour)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "api-marketplace")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.key_prefix", "ratelimit:register:")
	v.SetDefault("ratelimit.redis.addr", "localhost:6379")
	v.SetDefault("ratelimit.redis.password", "")
	v.SetDefault("ratelimit.redis.db", 0)
	v.SetDefault("matching.threshold", 50)
	v.SetDefault("matching.weights.material_type", 30)
	v.SetDefault("matching.weights.material_grade", 30)
	v.SetDefault("matching.weights.delivery_location", 0)
	v.SetDefault("matching.weights.volume_coverage", 0)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.topic", "marketplace.events")
	v.SetDefault("jobs.expiry_schedule", "@every 15m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return eris.New("config: auth.jwt_secret is required")
	}
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		return eris.Errorf("config: unsupported ratelimit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return eris.New("config: ratelimit.requests and ratelimit.window must be positive")
	}
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 100 {
		return eris.New("config: matching.threshold must be within 0..100")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
