package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"codearena/internal/auth"
	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	commonmw "codearena/internal/common/http/middleware"
	"codearena/internal/common/mq"
	"codearena/internal/common/storage"
	"codearena/internal/judge/executor"
	"codearena/internal/submit/service"
	"codearena/pkg/utils/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultEventTopic      = "submission.judged"
)

// Environment overrides for secrets, applied after the YAML file.
const (
	envMySQLDSN       = "CODEARENA_MYSQL_DSN"
	envRedisPassword  = "CODEARENA_REDIS_PASSWORD"
	envJWTSecret      = "CODEARENA_JWT_SECRET"
	envMinIOAccessKey = "CODEARENA_MINIO_ACCESS_KEY"
	envMinIOSecretKey = "CODEARENA_MINIO_SECRET_KEY"
	envPistonEndpoint = "CODEARENA_PISTON_ENDPOINT"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`

	CORS commonmw.CORSConfig `yaml:"cors"`
}

// ExecutorConfig holds execution backend settings.
type ExecutorConfig struct {
	Endpoint string                      `yaml:"endpoint" validate:"required,url"`
	Timeout  time.Duration               `yaml:"timeout"`
	Runtimes map[string]executor.Runtime `yaml:"runtimes"`
}

// SubmitConfig holds submission settings.
type SubmitConfig struct {
	SourceBucket       string                  `yaml:"sourceBucket"`
	EventTopic         string                  `yaml:"eventTopic"`
	MaxCodeBytes       int                     `yaml:"maxCodeBytes" validate:"gte=0"`
	SampleCount        int                     `yaml:"sampleCount" validate:"gte=0"`
	SubmissionCacheTTL time.Duration           `yaml:"submissionCacheTTL"`
	SubmissionEmptyTTL time.Duration           `yaml:"submissionEmptyTTL"`
	ProblemCacheTTL    time.Duration           `yaml:"problemCacheTTL"`
	ProblemEmptyTTL    time.Duration           `yaml:"problemEmptyTTL"`
	RateLimit          service.RateLimitConfig `yaml:"rateLimit"`
	Timeouts           service.TimeoutConfig   `yaml:"timeouts"`
}

// AppConfig holds judge-service configuration.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Kafka    mq.KafkaConfig      `yaml:"kafka"`
	Auth     auth.Config         `yaml:"auth"`
	Executor ExecutorConfig      `yaml:"executor"`
	Submit   SubmitConfig        `yaml:"submit"`
}

// requiredSettings lists the settings the service cannot start without.
type requiredSettings struct {
	DSN       string `validate:"required"`
	RedisAddr string `validate:"required,hostname_port"`
	JWTSecret string `validate:"required,min=16"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	if err := validateAppConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.DSN, envMySQLDSN)
	override(&cfg.Redis.Password, envRedisPassword)
	override(&cfg.Auth.Secret, envJWTSecret)
	override(&cfg.MinIO.AccessKey, envMinIOAccessKey)
	override(&cfg.MinIO.SecretKey, envMinIOSecretKey)
	override(&cfg.Executor.Endpoint, envPistonEndpoint)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	dbDefaults := db.DefaultMySQLConfig()
	if cfg.Database.MaxOpenConnections == 0 {
		cfg.Database.MaxOpenConnections = dbDefaults.MaxOpenConnections
	}
	if cfg.Database.MaxIdleConnections == 0 {
		cfg.Database.MaxIdleConnections = dbDefaults.MaxIdleConnections
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = dbDefaults.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = dbDefaults.ConnMaxIdleTime
	}

	redisDefaults := cache.DefaultRedisConfig()
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = redisDefaults.PoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = redisDefaults.DialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = redisDefaults.ReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = redisDefaults.WriteTimeout
	}

	if cfg.Executor.Endpoint == "" {
		cfg.Executor.Endpoint = executor.DefaultEndpoint
	}

	if cfg.Submit.SourceBucket == "" {
		cfg.Submit.SourceBucket = cfg.MinIO.Bucket
	}
	if cfg.Submit.EventTopic == "" {
		cfg.Submit.EventTopic = defaultEventTopic
	}
	if cfg.Submit.MaxCodeBytes == 0 {
		cfg.Submit.MaxCodeBytes = 64 * 1024
	}
	if cfg.Submit.SubmissionCacheTTL == 0 {
		cfg.Submit.SubmissionCacheTTL = 30 * time.Minute
	}
	if cfg.Submit.SubmissionEmptyTTL == 0 {
		cfg.Submit.SubmissionEmptyTTL = 5 * time.Minute
	}
	if cfg.Submit.ProblemCacheTTL == 0 {
		cfg.Submit.ProblemCacheTTL = 30 * time.Minute
	}
	if cfg.Submit.ProblemEmptyTTL == 0 {
		cfg.Submit.ProblemEmptyTTL = time.Minute
	}
	// Submit throttling stays off unless userMax is configured.
	if cfg.Submit.RateLimit.UserMax > 0 && cfg.Submit.RateLimit.Window == 0 {
		cfg.Submit.RateLimit.Window = time.Minute
	}
	if cfg.Submit.Timeouts.DB == 0 {
		cfg.Submit.Timeouts.DB = 3 * time.Second
	}
	if cfg.Submit.Timeouts.Cache == 0 {
		cfg.Submit.Timeouts.Cache = time.Second
	}
	if cfg.Submit.Timeouts.MQ == 0 {
		cfg.Submit.Timeouts.MQ = 3 * time.Second
	}
	if cfg.Submit.Timeouts.Storage == 0 {
		cfg.Submit.Timeouts.Storage = 5 * time.Second
	}
}

func validateAppConfig(cfg *AppConfig) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg.Server); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := validate.Struct(cfg.Executor); err != nil {
		return fmt.Errorf("invalid executor config: %w", err)
	}
	if err := validate.Struct(cfg.Submit); err != nil {
		return fmt.Errorf("invalid submit config: %w", err)
	}
	required := requiredSettings{
		DSN:       cfg.Database.DSN,
		RedisAddr: cfg.Redis.Addr,
		JWTSecret: cfg.Auth.Secret,
	}
	if err := validate.Struct(required); err != nil {
		return fmt.Errorf("missing required settings (%s, %s): %w", envMySQLDSN, envJWTSecret, err)
	}
	if cfg.MinIO.Endpoint != "" && cfg.Submit.SourceBucket == "" {
		return fmt.Errorf("minio is configured but no source bucket is set")
	}
	return nil
}
