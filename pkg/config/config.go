package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ContractScan/internal/domain/models"
	applogger "ContractScan/pkg/logger"
)

type Config struct {
	Environment string                `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Logging     applogger.Config      `yaml:"logging"`
	Server      Server                `yaml:"server"`
	Metrics     Metrics               `yaml:"metrics"`
	Source      Source                `yaml:"source"`
	Output      Output                `yaml:"output"`
	Analysis    models.AnalysisParams `yaml:"analysis"`
	Roster      models.Roster         `yaml:"roster"`
	Suppliers   Suppliers             `yaml:"suppliers"`
	Kafka       Kafka                 `yaml:"kafka"`
	ClickHouse  ClickHouse            `yaml:"clickhouse"`
	Cache       Cache                 `yaml:"cache"`
	Digest      Digest                `yaml:"digest"`
}

type Server struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	// AnalysisTimeout bounds one pipeline run triggered over HTTP or Kafka.
	AnalysisTimeout time.Duration `yaml:"analysis_timeout" default:"5m"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type Source struct {
	// Type selects the market data provider: yahoo, csv or clickhouse.
	Type string `yaml:"type" default:"yahoo" validate:"oneof=yahoo csv clickhouse"`
	// CSVDir holds market_data_<stamp>.csv and volume_data_<stamp>.csv for the csv source.
	CSVDir    string        `yaml:"csv_dir" default:"data"`
	RateLimit int           `yaml:"rate_limit" default:"5" validate:"gt=0"` // requests per Period
	Period    time.Duration `yaml:"period" default:"1s"`
	Lookahead time.Duration `yaml:"lookahead" default:"120h"`
	Lookback  time.Duration `yaml:"lookback" default:"2880h"`
}

type Output struct {
	Dir        string `yaml:"dir" default:"output"`
	CSV        bool   `yaml:"csv" default:"true"`
	ClickHouse bool   `yaml:"clickhouse"`
}

type Suppliers struct {
	Path string `yaml:"path" default:"suppliers.csv"`
	// Tier, when set, adds public suppliers of that tier to the roster.
	Tier int `yaml:"tier" validate:"omitempty,oneof=1 2 3 4"`
}

type Kafka struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	Compression string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer    struct {
		ReportTopic  string        `yaml:"report_topic" default:"contractscan.reports"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		BufferSize   int           `yaml:"buffer_size" default:"64"`
	} `yaml:"producer"`
	Consumer struct {
		RequestTopic string        `yaml:"request_topic" default:"contractscan.requests"`
		GroupID      string        `yaml:"group_id" default:"contractscan"`
		Workers      int           `yaml:"workers" default:"2"`
		BufferSize   int           `yaml:"buffer_size" default:"16"`
		RetryMax     int           `yaml:"retry_max" default:"2"`
		BackoffMin   time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax   time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic     string        `yaml:"dlq_topic" default:"contractscan.requests.dlq"`
	} `yaml:"consumer"`
}

type ClickHouse struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"contractscan"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type Cache struct {
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
	TTL           time.Duration `yaml:"ttl" default:"24h"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" default:"10m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"128" validate:"gt=0"`
	RedisAddr     string        `yaml:"redis_addr" default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix" default:"contractscan"`
}

type Digest struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval" default:"1m"`
	Threshold int           `yaml:"threshold" default:"1"`
	Topic     string        `yaml:"topic" default:"contractscan.log-digest"`
}

// Default returns a fully defaulted configuration with the stock roster.
func Default() *Config {
	var c Config
	if err := c.applyDefaults(); err != nil {
		panic(err)
	}
	return &c
}

// Load reads a YAML file, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes; unknown keys are rejected.
func Parse(b []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads the file (or defaults when path is empty) and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c = Default()
	} else if c, err = Load(path); err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CONTRACTSCAN_ENV"); ok && v != "" {
		c.Environment = v
	}
	if v, ok := lookup("CONTRACTSCAN_SOURCE"); ok && v != "" {
		c.Source.Type = v
	}
	if v, ok := lookup("CONTRACTSCAN_OUTPUT_DIR"); ok && v != "" {
		c.Output.Dir = v
	}
	if v, ok := lookup("CONTRACTSCAN_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Cache.RedisAddr = v
	}
	if v, ok := lookup("CLICKHOUSE_HOST"); ok && v != "" {
		c.ClickHouse.Host = v
	}
	if v, ok := lookup("CLICKHOUSE_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CLICKHOUSE_PORT: %w", err)
		}
		c.ClickHouse.Port = p
	}
	if v, ok := lookup("CLICKHOUSE_PASSWORD"); ok {
		c.ClickHouse.Password = v
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("config defaults: %w", err)
	}
	if len(c.Roster.Instruments) == 0 {
		controls, eligibility := c.Roster.Controls, c.Roster.Correlation
		c.Roster = models.DefaultRoster()
		if controls != (models.ControlRoles{}) {
			c.Roster.Controls = controls
		}
		if len(eligibility.Names)+len(eligibility.Tiers)+len(eligibility.Markers) > 0 {
			c.Roster.Correlation = eligibility
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Roster.Validate(); err != nil {
		return err
	}
	if c.Source.Type == "clickhouse" || c.Output.ClickHouse {
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required when clickhouse is used")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Digest.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("digest requires kafka")
	}
	return nil
}
