package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Alchemy     AlchemyConfig   `mapstructure:"alchemy"`
	Etherscan   EtherscanConfig `mapstructure:"etherscan"`
	Flow        FlowConfig      `mapstructure:"flow"`
	Workers     WorkerConfig    `mapstructure:"workers"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Secrets     SecretsConfig   `mapstructure:"secrets"`
}

type ServerConfig struct {
	Port               int      `mapstructure:"port"`
	Host               string   `mapstructure:"host"`
	ReadTimeout        int      `mapstructure:"read_timeout"`
	WriteTimeout       int      `mapstructure:"write_timeout"`
	ShutdownTimeout    int      `mapstructure:"shutdown_timeout"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMin    int      `mapstructure:"rate_limit_per_min"`
	TransferRatePerMin int      `mapstructure:"transfer_rate_per_min"` // per-IP limit on token-transfers
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	QueryTimeout    int    `mapstructure:"query_timeout"`
	MigrationsPath  string `mapstructure:"migrations_path"`
	RunMigrations   bool   `mapstructure:"run_migrations"`
}

type RedisConfig struct {
	URL        string `mapstructure:"url"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
	Enabled    bool   `mapstructure:"enabled"`
}

// AlchemyConfig configures the primary transfer history provider
type AlchemyConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"` // {network} is replaced per chain, e.g. base-mainnet
	Timeout    int    `mapstructure:"timeout"`  // seconds
	MaxRetries int    `mapstructure:"max_retries"`
	PageSize   int    `mapstructure:"page_size"`
}

// EtherscanConfig configures the fallback transfer history provider
type EtherscanConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"`
	MaxRetries int    `mapstructure:"max_retries"`
	PageSize   int    `mapstructure:"page_size"`
}

// ProtocolAddressConfig is one row of the protocol classification table
type ProtocolAddressConfig struct {
	Address  string `mapstructure:"address" validate:"required"`
	Protocol string `mapstructure:"protocol" validate:"required"`
	Label    string `mapstructure:"label"`
}

// FlowConfig holds the flow analysis constants
type FlowConfig struct {
	Protocols             []ProtocolAddressConfig `mapstructure:"protocols" validate:"dive"`
	MaxTransfers          int                     `mapstructure:"max_transfers" validate:"min=1,max=100000"`
	MaxDisplayTransfers   int                     `mapstructure:"max_display_transfers" validate:"min=1"`
	DefaultPageLimit      int                     `mapstructure:"default_page_limit" validate:"min=1"`
	CacheTTLSeconds       int                     `mapstructure:"cache_ttl_seconds" validate:"min=0"`
	InsufficientTimespanH int                     `mapstructure:"insufficient_timespan_hours" validate:"min=1"`
	LimitedCoverageH      int                     `mapstructure:"limited_coverage_hours" validate:"min=1"`
	WhaleMultiplier       float64                 `mapstructure:"whale_multiplier" validate:"gt=0"`
	TopWhales             int                     `mapstructure:"top_whales" validate:"min=1"`
	SmartMoneyMinTxs      int                     `mapstructure:"smart_money_min_txs" validate:"min=1"`
	TopSmartMoney         int                     `mapstructure:"top_smart_money" validate:"min=1"`
	VelocityWindow        int                     `mapstructure:"velocity_window" validate:"min=1"`
	AcceleratingRatio     float64                 `mapstructure:"accelerating_ratio" validate:"gt=1"`
	DeceleratingRatio     float64                 `mapstructure:"decelerating_ratio" validate:"gt=0,lt=1"`
	HourlyBuckets         int                     `mapstructure:"hourly_buckets" validate:"min=1"`
	DailyBuckets          int                     `mapstructure:"daily_buckets" validate:"min=1"`
}

// CacheTTL returns the transfer cache TTL
func (f FlowConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLSeconds) * time.Second
}

type WorkerConfig struct {
	CacheWarmEnabled  bool   `mapstructure:"cache_warm_enabled"`
	CacheWarmSchedule string `mapstructure:"cache_warm_schedule"`
	CacheWarmWorkers  int    `mapstructure:"cache_warm_workers"`
	SummaryWorkers    int    `mapstructure:"summary_workers"`
	JobTimeout        int    `mapstructure:"job_timeout"` // seconds
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// SecretsConfig selects where upstream API keys missing from the environment are read from
type SecretsConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=env aws"`
	Region   string `mapstructure:"region"`
	Prefix   string `mapstructure:"prefix"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv(v)

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 90)
	v.SetDefault("server.shutdown_timeout", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_min", 300)
	v.SetDefault("server.transfer_rate_per_min", 30)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "yield_service")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.query_timeout", 10)
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.run_migrations", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.enabled", true)

	// Upstream providers
	v.SetDefault("alchemy.base_url", "https://{network}.g.alchemy.com/v2")
	v.SetDefault("alchemy.timeout", 30)
	v.SetDefault("alchemy.max_retries", 3)
	v.SetDefault("alchemy.page_size", 1000)
	v.SetDefault("etherscan.base_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("etherscan.timeout", 30)
	v.SetDefault("etherscan.max_retries", 3)
	v.SetDefault("etherscan.page_size", 1000)

	// Flow analysis defaults
	v.SetDefault("flow.protocols", DefaultProtocols())
	v.SetDefault("flow.max_transfers", 15000)
	v.SetDefault("flow.max_display_transfers", 50)
	v.SetDefault("flow.default_page_limit", 50)
	v.SetDefault("flow.cache_ttl_seconds", 300)
	v.SetDefault("flow.insufficient_timespan_hours", 24)
	v.SetDefault("flow.limited_coverage_hours", 7*24)
	v.SetDefault("flow.whale_multiplier", 10.0)
	v.SetDefault("flow.top_whales", 10)
	v.SetDefault("flow.smart_money_min_txs", 5)
	v.SetDefault("flow.top_smart_money", 5)
	v.SetDefault("flow.velocity_window", 100)
	v.SetDefault("flow.accelerating_ratio", 1.2)
	v.SetDefault("flow.decelerating_ratio", 0.8)
	v.SetDefault("flow.hourly_buckets", 24)
	v.SetDefault("flow.daily_buckets", 30)

	// Workers
	v.SetDefault("workers.cache_warm_enabled", true)
	v.SetDefault("workers.cache_warm_schedule", "@every 5m")
	v.SetDefault("workers.cache_warm_workers", 4)
	v.SetDefault("workers.summary_workers", 8)
	v.SetDefault("workers.job_timeout", 240)

	// Tracing
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_url", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 0.1)

	// Secrets
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.region", "us-east-1")
	v.SetDefault("secrets.prefix", "yield-service/")
	v.SetDefault("secrets.cache_ttl", 900)
}

// DefaultProtocols is the built-in Lido and Morpho contract table
func DefaultProtocols() []ProtocolAddressConfig {
	return []ProtocolAddressConfig{
		{Address: "0xae7ab96520de3a18e5e111b5eaab095312d7fe84", Protocol: "lido", Label: "stETH"},
		{Address: "0x7f39c581f595b53c5cb19bd0b3f8da6c935e2ca0", Protocol: "lido", Label: "wstETH"},
		{Address: "0x889edc2edab5f40e902b864ad4d7ade8e412f9b1", Protocol: "lido", Label: "Withdrawal Queue"},
		{Address: "0xbbbbbbbbbb9cc5e90e3b3af64bdaf62c37eeffcb", Protocol: "morpho", Label: "Morpho Blue"},
		{Address: "0x33333aea097c193e66081e930c33020272b33333", Protocol: "morpho", Label: "Morpho AaveV3 Optimizer"},
		{Address: "0x4095f064b8d3c3548a3bebfd0bbfd04750e30077", Protocol: "morpho", Label: "Morpho Bundler"},
	}
}

func overrideFromEnv(v *viper.Viper) {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("server.port", p)
		}
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		v.Set("server.allowed_origins", splitCSV(origins))
	}

	// Database
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}

	// Redis
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		v.Set("redis.url", redisURL)
	}

	// Upstream providers
	if key := os.Getenv("ALCHEMY_API_KEY"); key != "" {
		v.Set("alchemy.api_key", key)
	}
	if key := os.Getenv("ETHERSCAN_API_KEY"); key != "" {
		v.Set("etherscan.api_key", key)
	}

	// Secrets
	if provider := os.Getenv("SECRETS_PROVIDER"); provider != "" {
		v.Set("secrets.provider", provider)
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		v.Set("secrets.region", region)
	}

	// Tracing
	if collector := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); collector != "" {
		v.Set("tracing.collector_url", collector)
		v.Set("tracing.enabled", true)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func validate(config *Config) error {
	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if err := validator.New().Struct(config.Flow); err != nil {
		return fmt.Errorf("flow configuration: %w", err)
	}

	if err := validator.New().Struct(config.Secrets); err != nil {
		return fmt.Errorf("secrets configuration: %w", err)
	}

	if config.Flow.LimitedCoverageH < config.Flow.InsufficientTimespanH {
		return fmt.Errorf("flow.limited_coverage_hours must be >= flow.insufficient_timespan_hours")
	}

	for _, p := range config.Flow.Protocols {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("flow.protocols: invalid address %q for %s", p.Address, p.Protocol)
		}
	}

	return nil
}
