package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FinCast/internal/domain/models"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Log         LogConfig        `yaml:"log"`
	Forecast    ForecastConfig   `yaml:"forecast"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" default:"5"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" default:"10"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
	// Collect forwards aggregated error logs to Kafka.
	Collect         bool          `yaml:"collect"`
	CollectTopic    string        `yaml:"collect_topic" default:"fincast.logs"`
	CollectInterval time.Duration `yaml:"collect_interval" default:"30s"`
}

// ForecastConfig mirrors models.RunConfig plus service level knobs.
type ForecastConfig struct {
	Horizon           int           `yaml:"n_future" default:"10"`
	WindowSize        int           `yaml:"window_size" default:"30"`
	RiskProfile       string        `yaml:"risk_profile" default:"moderate"`
	TSWeight          float64       `yaml:"ts_weight" default:"0.8"`
	MLWeight          float64       `yaml:"ml_weight" default:"0.2"`
	BacktestDays      int           `yaml:"backtest_days" default:"30"`
	ForecasterTimeout time.Duration `yaml:"forecaster_timeout" default:"60s"`
	Parallel          bool          `yaml:"parallel" default:"true"`
	Lookback          int           `yaml:"lookback" default:"750" validate:"gte=60"`
	CacheTTL          time.Duration `yaml:"cache_ttl" default:"15m"`
	CacheSize         int           `yaml:"cache_size" default:"512"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"fincast"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"fincast"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	SignalsTopic string   `yaml:"signals_topic" default:"fincast.signals"`
	RequestTopic string   `yaml:"request_topic" default:"fincast.requests"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"100ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"fincast"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"16"`
		RetryMax   int           `yaml:"retry_max" default:"2"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"fincast.requests.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		// JobsPerSecond throttles jobs per symbol.
		JobsPerSecond float64 `yaml:"jobs_per_second" default:"1"`
	} `yaml:"consumer"`
}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("RISK_PROFILE"); v != "" {
		c.Forecast.RiskProfile = v
	}
	if v := getenv("N_FUTURE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("N_FUTURE: %w", err)
		}
		c.Forecast.Horizon = n
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RunConfig converts the forecast section. The risk profile accepts the same
// aliases as the API.
func (f ForecastConfig) RunConfig() (models.RunConfig, error) {
	p, err := models.ParseRiskProfile(f.RiskProfile)
	if err != nil {
		return models.RunConfig{}, err
	}
	return models.RunConfig{
		Horizon:           f.Horizon,
		WindowSize:        f.WindowSize,
		RiskProfile:       p,
		TSWeight:          f.TSWeight,
		MLWeight:          f.MLWeight,
		BacktestDays:      f.BacktestDays,
		ForecasterTimeout: f.ForecasterTimeout,
		Parallel:          f.Parallel,
	}, nil
}

var validate = validator.New()

// Validate checks tags, the forecast section and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	rc, err := c.Forecast.RunConfig()
	if err != nil {
		return fmt.Errorf("forecast.risk_profile: %w", err)
	}
	if err := validate.Struct(rc); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if math.Abs(rc.TSWeight+rc.MLWeight-1) > 1e-9 {
		return fmt.Errorf("forecast: ts_weight + ml_weight must be 1, got %g", rc.TSWeight+rc.MLWeight)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
