package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Dataset
	DatasetPath   string `yaml:"dataset_path"`
	GeneratorRows int    `yaml:"generator_rows"`
	GeneratorSeed int64  `yaml:"generator_seed"`

	// Training
	ArtifactPath   string  `yaml:"artifact_path"`
	SplitSeed      int64   `yaml:"split_seed"`
	TestFraction   float64 `yaml:"test_fraction"`
	MaxIterations  int     `yaml:"max_iterations"`
	Solver         string  `yaml:"solver"`
	Regularization float64 `yaml:"regularization"`

	// Serving
	RiskThreshold  float64       `yaml:"risk_threshold"`
	ServerHost     string        `yaml:"server_host"`
	ServerPort     string        `yaml:"server_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxRequestBody int64         `yaml:"max_request_body"`

	// Database
	PostgresHost         string `yaml:"postgres_host"`
	PostgresPort         string `yaml:"postgres_port"`
	PostgresUser         string `yaml:"postgres_user"`
	PostgresPassword     string `yaml:"postgres_password"`
	PostgresDB           string `yaml:"postgres_db"`
	PostgresSSLMode      string `yaml:"postgres_sslmode"`
	RegistryEnabled      bool   `yaml:"registry_enabled"`
	PredictionLogEnabled bool   `yaml:"prediction_log_enabled"`

	// Redis
	RedisHost          string        `yaml:"redis_host"`
	RedisPort          string        `yaml:"redis_port"`
	RedisPassword      string        `yaml:"redis_password"`
	RedisDB            int           `yaml:"redis_db"`
	PredictionCacheTTL time.Duration `yaml:"prediction_cache_ttl"`

	// Kafka
	KafkaBrokers        []string `yaml:"kafka_brokers"`
	TrainingEventsTopic string   `yaml:"training_events_topic"`
}

func Default() *Config {
	return &Config{
		DatasetPath:   "tb_dummy_500.csv",
		GeneratorRows: 500,

		ArtifactPath:   "model_pipeline.json",
		SplitSeed:      42,
		TestFraction:   0.2,
		MaxIterations:  1000,
		Solver:         "newton",
		Regularization: 1.0,

		RiskThreshold:  0.5,
		ServerHost:     "0.0.0.0",
		ServerPort:     "8501",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxRequestBody: 1 << 20,

		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "tbdelay",
		PostgresPassword: "tbdelay",
		PostgresDB:       "tbdelay",
		PostgresSSLMode:  "disable",

		RedisHost:          "localhost",
		RedisPort:          "6379",
		PredictionCacheTTL: 10 * time.Minute,

		KafkaBrokers: []string{"localhost:9092"},
	}
}

// Load returns the defaults overridden by environment variables.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML file on top of the defaults, then applies the
// environment. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test_fraction must be in (0,1), got %v", c.TestFraction)
	}
	if c.RiskThreshold <= 0 || c.RiskThreshold >= 1 {
		return fmt.Errorf("risk_threshold must be in (0,1), got %v", c.RiskThreshold)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.GeneratorRows < 0 {
		return fmt.Errorf("generator_rows must not be negative, got %d", c.GeneratorRows)
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) applyEnv() {
	c.DatasetPath = getEnv("DATASET_PATH", c.DatasetPath)
	c.GeneratorRows = getIntEnv("GENERATOR_ROWS", c.GeneratorRows)
	c.GeneratorSeed = getInt64Env("GENERATOR_SEED", c.GeneratorSeed)

	c.ArtifactPath = getEnv("ARTIFACT_PATH", c.ArtifactPath)
	c.SplitSeed = getInt64Env("SPLIT_SEED", c.SplitSeed)
	c.TestFraction = getFloatEnv("TEST_FRACTION", c.TestFraction)
	c.MaxIterations = getIntEnv("MAX_ITERATIONS", c.MaxIterations)
	c.Solver = getEnv("SOLVER", c.Solver)
	c.Regularization = getFloatEnv("REGULARIZATION", c.Regularization)

	c.RiskThreshold = getFloatEnv("RISK_THRESHOLD", c.RiskThreshold)
	c.ServerHost = getEnv("SERVER_HOST", c.ServerHost)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.ReadTimeout = getDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.MaxRequestBody = int64(getIntEnv("MAX_REQUEST_BODY_BYTES", int(c.MaxRequestBody)))

	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)
	c.RegistryEnabled = getBoolEnv("TRAINING_REGISTRY_ENABLED", c.RegistryEnabled)
	c.PredictionLogEnabled = getBoolEnv("PREDICTION_LOG_ENABLED", c.PredictionLogEnabled)

	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnv("REDIS_PORT", c.RedisPort)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getIntEnv("REDIS_DB", c.RedisDB)
	c.PredictionCacheTTL = getDuration("PREDICTION_CACHE_TTL", c.PredictionCacheTTL)

	c.KafkaBrokers = getStringSliceEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.TrainingEventsTopic = getEnv("TRAINING_EVENTS_TOPIC", c.TrainingEventsTopic)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
