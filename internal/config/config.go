package config

import (
	"strings"

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
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Keywords  KeywordsConfig  `yaml:"keywords" mapstructure:"keywords"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Support   SupportConfig   `yaml:"support" mapstructure:"support"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the payment ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RatePerSecond   float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst       int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	SessionTTLMins  int      `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
	ShutdownTimeout int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// AuthConfig configures bearer-token identity.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// GeneratorConfig configures content generation behavior.
type GeneratorConfig struct {
	SimulateLatency bool `yaml:"simulate_latency" mapstructure:"simulate_latency"`
	LatencyMinMS    int  `yaml:"latency_min_ms" mapstructure:"latency_min_ms"`
	LatencyMaxMS    int  `yaml:"latency_max_ms" mapstructure:"latency_max_ms"`
}

// KeywordsConfig configures the trending keyword source.
type KeywordsConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Key          string `yaml:"key" mapstructure:"key"`
	Limit        int    `yaml:"limit" mapstructure:"limit"`
	CacheTTLMins int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// PricingConfig holds the premium plan prices shown in the upgrade flow.
type PricingConfig struct {
	Currency string  `yaml:"currency" mapstructure:"currency"`
	Monthly  float64 `yaml:"monthly" mapstructure:"monthly"`
	Weekly   float64 `yaml:"weekly" mapstructure:"weekly"`
}

// SupportConfig holds the donation metadata served to clients.
type SupportConfig struct {
	UPIID     string            `yaml:"upi_id" mapstructure:"upi_id"`
	PayeeName string            `yaml:"payee_name" mapstructure:"payee_name"`
	Amounts   []float64         `yaml:"amounts" mapstructure:"amounts"`
	Wallets   map[string]string `yaml:"wallets" mapstructure:"wallets"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional and never overrides real environment variables.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTENTFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "contentforge.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_per_second", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.session_ttl_mins", 30)
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("generator.simulate_latency", true)
	v.SetDefault("generator.latency_min_ms", 500)
	v.SetDefault("generator.latency_max_ms", 1500)
	v.SetDefault("keywords.provider", "static")
	v.SetDefault("keywords.base_url", "https://api.trendwatch.dev")
	v.SetDefault("keywords.limit", 10)
	v.SetDefault("keywords.cache_ttl_mins", 60)
	v.SetDefault("pricing.currency", "INR")
	v.SetDefault("pricing.monthly", 99.0)
	v.SetDefault("pricing.weekly", 25.0)
	v.SetDefault("support.upi_id", "contentforge@upi")
	v.SetDefault("support.payee_name", "ContentForge")
	v.SetDefault("support.amounts", []float64{25, 50, 99})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration required for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres",
		"store.driver must be sqlite or postgres")
	check(c.Store.DatabaseURL != "", "store.database_url is required")

	switch mode {
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Server.RatePerSecond > 0, "server.rate_per_second must be > 0")
		check(c.Server.RateBurst > 0, "server.rate_burst must be > 0")
		check(c.Generator.LatencyMinMS <= c.Generator.LatencyMaxMS,
			"generator.latency_min_ms must not exceed latency_max_ms")
		check(c.Keywords.Provider == "static" || c.Keywords.Provider == "api",
			"keywords.provider must be static or api")
		if c.Keywords.Provider == "api" {
			check(c.Keywords.Key != "", "keywords.key is required for the api provider")
		}
	case "generate":
		check(c.Generator.LatencyMinMS <= c.Generator.LatencyMaxMS,
			"generator.latency_min_ms must not exceed latency_max_ms")
	case "claims", "migrate":
		// Store checks above are sufficient.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
