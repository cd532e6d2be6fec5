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

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendDynamoDB = "dynamodb"
)

// Config is read once at start-up and handed to constructors.
type Config struct {
	Env         string            `yaml:"env"`
	LogLevel    string            `yaml:"log_level"`
	HTTP        HTTPConfig        `yaml:"http"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Store       StoreConfig       `yaml:"store"`
	Valkey      ValkeyConfig      `yaml:"valkey"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
}

type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	DisplayTimezone string   `yaml:"display_timezone"`
}

type HuggingFaceConfig struct {
	APIToken            string        `yaml:"api_token"`
	BaseURL             string        `yaml:"base_url"`
	ClassificationModel string        `yaml:"classification_model"`
	SentimentModel      string        `yaml:"sentiment_model"`
	Timeout             time.Duration `yaml:"timeout"`
	MaxRetries          int           `yaml:"max_retries"`
	InitialBackoff      time.Duration `yaml:"initial_backoff"`
}

type AnalysisConfig struct {
	MinLength               int           `yaml:"min_length"`
	ClassificationThreshold float64       `yaml:"classification_threshold"`
	SentimentThreshold      float64       `yaml:"sentiment_threshold"`
	DefaultContact          string        `yaml:"default_contact"`
	RequestTimeout          time.Duration `yaml:"request_timeout"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"`
	DatabaseURL   string `yaml:"database_url"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSEndpoint   string `yaml:"aws_endpoint"`
}

type ValkeyConfig struct {
	InitAddress string        `yaml:"init_address"`
	Password    string        `yaml:"password"`
	TLS         bool          `yaml:"tls"`
	TTL         time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

type MonitoringConfig struct {
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// Default returns the configuration used when neither a YAML file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Env:      "dev",
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:            ":8000",
			AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
			DisplayTimezone: "Asia/Kolkata",
		},
		HuggingFace: HuggingFaceConfig{
			BaseURL:             "https://api-inference.huggingface.co/models",
			ClassificationModel: "facebook/bart-large-mnli",
			SentimentModel:      "cardiffnlp/twitter-roberta-base-sentiment-latest",
			Timeout:             30 * time.Second,
			MaxRetries:          3,
			InitialBackoff:      time.Second,
		},
		Analysis: AnalysisConfig{
			MinLength:               15,
			ClassificationThreshold: 0.5,
			SentimentThreshold:      0.6,
			DefaultContact:          "customer@example.com",
			RequestTimeout:          45 * time.Second,
		},
		Store: StoreConfig{
			Backend:       StoreBackendMemory,
			DynamoDBTable: "Complaints",
			AWSRegion:     "us-west-2",
		},
		Valkey: ValkeyConfig{
			TTL: 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "complaint-events",
		},
		Monitoring: MonitoringConfig{
			HealthCheckInterval: 15 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (config.yaml when unset, skipped when missing), then the
// environment.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	setString(&c.Env, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")

	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setList(&c.HTTP.AllowedOrigins, "CORS_ALLOWED_ORIGINS")
	setString(&c.HTTP.DisplayTimezone, "DISPLAY_TIMEZONE")

	setString(&c.HuggingFace.APIToken, "HF_API_TOKEN")
	setString(&c.HuggingFace.BaseURL, "HF_BASE_URL")
	setString(&c.HuggingFace.ClassificationModel, "HF_CLASSIFICATION_MODEL")
	setString(&c.HuggingFace.SentimentModel, "HF_SENTIMENT_MODEL")
	collect(setDuration(&c.HuggingFace.Timeout, "HF_TIMEOUT"))
	collect(setInt(&c.HuggingFace.MaxRetries, "HF_MAX_RETRIES"))
	collect(setDuration(&c.HuggingFace.InitialBackoff, "HF_INITIAL_BACKOFF"))

	collect(setInt(&c.Analysis.MinLength, "ANALYSIS_MIN_LENGTH"))
	collect(setFloat(&c.Analysis.ClassificationThreshold, "ANALYSIS_CLASSIFICATION_THRESHOLD"))
	collect(setFloat(&c.Analysis.SentimentThreshold, "ANALYSIS_SENTIMENT_THRESHOLD"))
	setString(&c.Analysis.DefaultContact, "ANALYSIS_DEFAULT_CONTACT")
	collect(setDuration(&c.Analysis.RequestTimeout, "ANALYSIS_REQUEST_TIMEOUT"))

	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")
	setString(&c.Store.DynamoDBTable, "DYNAMODB_TABLE")
	setString(&c.Store.AWSRegion, "AWS_REGION")
	setString(&c.Store.AWSEndpoint, "AWS_ENDPOINT")

	setString(&c.Valkey.InitAddress, "VALKEY_INIT_ADDRESS")
	setString(&c.Valkey.Password, "VALKEY_PASSWORD")
	collect(setBool(&c.Valkey.TLS, "VALKEY_TLS"))
	collect(setDuration(&c.Valkey.TTL, "VALKEY_TTL"))

	setString(&c.Kafka.Broker, "KAFKA_BROKER")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC_COMPLAINT_EVENTS")

	collect(setDuration(&c.Monitoring.HealthCheckInterval, "HEALTHCHECK_INTERVAL"))

	return errors.Join(errs...)
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if c.Analysis.MinLength < 1 {
		return fmt.Errorf("analysis min_length must be at least 1")
	}
	if c.Analysis.ClassificationThreshold < 0 || c.Analysis.ClassificationThreshold > 1 {
		return fmt.Errorf("analysis classification_threshold must be within [0,1]")
	}
	if c.Analysis.SentimentThreshold < 0 || c.Analysis.SentimentThreshold > 1 {
		return fmt.Errorf("analysis sentiment_threshold must be within [0,1]")
	}
	if c.HuggingFace.MaxRetries < 1 {
		return fmt.Errorf("huggingface max_retries must be at least 1")
	}
	if c.HuggingFace.Timeout <= 0 {
		return fmt.Errorf("huggingface timeout must be positive")
	}
	if c.HuggingFace.ClassificationModel == "" || c.HuggingFace.SentimentModel == "" {
		return fmt.Errorf("huggingface model identifiers are required")
	}

	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreBackendDynamoDB:
		if c.Store.DynamoDBTable == "" {
			return fmt.Errorf("dynamodb table name is required for the dynamodb store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Valkey.InitAddress != "" && c.Valkey.TTL < time.Second {
		return fmt.Errorf("valkey ttl must be at least 1s, got %s", c.Valkey.TTL)
	}

	if _, err := time.LoadLocation(c.HTTP.DisplayTimezone); err != nil {
		return fmt.Errorf("invalid display timezone %q: %w", c.HTTP.DisplayTimezone, err)
	}

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
