package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	App         AppConfig        `yaml:"app"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Analysis    AnalysisConfig   `yaml:"analysis"`
	Eastmoney   EastmoneyConfig  `yaml:"eastmoney"`
	Cache       CacheConfig      `yaml:"cache"`
	LLM         LLMConfig        `yaml:"llm"`
	Archive     ArchiveConfig    `yaml:"archive"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	SQLite      SQLiteConfig     `yaml:"sqlite"`
	Refresh     RefreshConfig    `yaml:"refresh"`
}

type AppConfig struct {
	Title string `yaml:"title" default:"股票资金流向分析"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORS            bool          `yaml:"cors" default:"true"`
	Compression     bool          `yaml:"compression" default:"true"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	// analysis endpoints, per client
	AnalysisRPS   float64 `yaml:"analysis_rps" default:"0.5"`
	AnalysisBurst int     `yaml:"analysis_burst" default:"3"`
}

type LogConfig struct {
	Level       string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format      string        `yaml:"format" default:"console" validate:"oneof=console json"`
	Output      string        `yaml:"output" default:"stdout"`
	ErrorOutput string        `yaml:"error_output"`
	Collect     CollectConfig `yaml:"collect"`
}

type CollectConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Topic     string        `yaml:"topic" default:"fundflow.logs"`
	Interval  time.Duration `yaml:"interval" default:"30s"`
	Threshold int           `yaml:"threshold" default:"100"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type AnalysisConfig struct {
	DefaultDays int     `yaml:"default_days" default:"30" validate:"gte=1"`
	MinDays     int     `yaml:"min_days" default:"10" validate:"gte=1"`
	MaxDays     int     `yaml:"max_days" default:"50" validate:"gtefield=MinDays"`
	MAWindows   []int   `yaml:"ma_windows" default:"[3,5,10]" validate:"min=1,dive,oneof=3 5 10"`
	Precision   int32   `yaml:"precision" default:"2" validate:"gte=0,lte=8"`
	Divisor     float64 `yaml:"divisor" default:"100000000" validate:"gt=0"`
}

type EastmoneyConfig struct {
	BaseURL       string        `yaml:"base_url" default:"https://push2his.eastmoney.com" validate:"url"`
	Timeout       time.Duration `yaml:"timeout" default:"15s"`
	MaxRetries    int           `yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	RetryDelay    time.Duration `yaml:"retry_delay" default:"500ms"`
	ThrottleDelay time.Duration `yaml:"throttle_delay" default:"5s"`
	RateLimit     float64       `yaml:"rate_limit" default:"2"`
	Burst         int           `yaml:"burst" default:"2"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"file" validate:"oneof=none file memory redis layered"`
	Dir           string        `yaml:"dir" default:"cache"`
	TTL           time.Duration `yaml:"ttl" default:"24h"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"500"`
	Redis         RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"fundflow"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider" default:"openai" validate:"oneof=openai claude gemini"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature" default:"0.7" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" default:"1500" validate:"gte=1"`
	Timeout     time.Duration `yaml:"timeout" default:"120s"`
}

type ArchiveConfig struct {
	Backend string `yaml:"backend" default:"none" validate:"oneof=none kafka clickhouse sqlite"`
	// where the kafka consumer writes snapshots when backend is kafka
	Sink string `yaml:"sink" default:"clickhouse" validate:"oneof=clickhouse sqlite"`
}

type KafkaConfig struct {
	Brokers      []string       `yaml:"brokers"`
	Topic        string         `yaml:"topic" default:"fundflow.snapshots"`
	RequiredAcks int            `yaml:"required_acks" default:"-1"`
	Compression  string         `yaml:"compression" default:"zstd" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     ProducerConfig `yaml:"producer"`
	Consumer     ConsumerConfig `yaml:"consumer"`
}

type ProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"200ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type ConsumerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	GroupID    string        `yaml:"group_id" default:"fundflow-archiver"`
	Workers    int           `yaml:"workers" default:"2"`
	BufferSize int           `yaml:"buffer_size" default:"64"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
	DLQTopic   string        `yaml:"dlq_topic"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"fundflow"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"data/fundflow.db"`
}

// RefreshConfig drives the background refresh queue. It connects with the
// cache.redis settings.
type RefreshConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
	RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
	KeyPrefix  string        `yaml:"key_prefix" default:"fundflow:refresh"`
}

var validate = validator.New()

// Load applies defaults, overlays a YAML file and validates. A missing file
// is not an error: defaults and the environment are enough to run.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env, then the YAML file, then overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("APP_TITLE"); v != "" {
		c.App.Title = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MAX_TRADING_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_TRADING_DAYS: %w", err)
		}
		c.Analysis.DefaultDays = n
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" && c.LLM.Provider == "openai" {
		c.LLM.Model = v
	}
	switch c.LLM.Provider {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	case "claude":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Cache.Redis.Port = p
		}
	}
	if v := os.Getenv("ARCHIVE_BACKEND"); v != "" {
		c.Archive.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REFRESH_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REFRESH_ENABLED: %w", err)
		}
		c.Refresh.Enabled = b
	}
	return nil
}

// Validate checks struct tags and the rules spanning sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Analysis.DefaultDays < c.Analysis.MinDays || c.Analysis.DefaultDays > c.Analysis.MaxDays {
		return fmt.Errorf("analysis.default_days must be within [%d,%d], got %d",
			c.Analysis.MinDays, c.Analysis.MaxDays, c.Analysis.DefaultDays)
	}
	if (c.Archive.Backend == "kafka" || c.Log.Collect.Enabled || c.Kafka.Consumer.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when archive.backend is kafka, log collection or the consumer is enabled")
	}
	return nil
}

// ModelName is the configured model or the provider default.
func (c *Config) ModelName() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	switch c.LLM.Provider {
	case "claude":
		return "claude-3-5-haiku-latest"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return "gpt-3.5-turbo"
	}
}

// MissingLLMSettings lists the environment variables still needed for analysis.
func (c *Config) MissingLLMSettings() []string {
	if c.LLM.APIKey != "" {
		return nil
	}
	switch c.LLM.Provider {
	case "claude":
		return []string{"ANTHROPIC_API_KEY"}
	case "gemini":
		return []string{"GEMINI_API_KEY"}
	default:
		return []string{"OPENAI_API_KEY"}
	}
}

// LLMConfigured reports whether analysis can run.
func (c *Config) LLMConfigured() bool {
	return len(c.MissingLLMSettings()) == 0
}
