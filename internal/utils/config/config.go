package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dwarvesf/chain-scanner/internal/consts"
	"github.com/dwarvesf/chain-scanner/internal/types/environments"
)

type AppConfig struct {
	Environment environments.Environment
	ApiServer   ApiServerConfig
	Scanner     ScannerConfig
	Checkpoint  CheckpointConfig
	Kafka       KafkaConfig
	Vault       VaultConfig
	Monitoring  MonitoringConfig
}

// ApiServerConfig configures the operational listener (health and metrics).
type ApiServerConfig struct {
	Addr           string
	AllowedOrigins string
}

type ScannerConfig struct {
	ChainsFile     string
	CachePrefix    string
	DefaultPeriod  string
	JobTimeout     time.Duration
	RequestTimeout time.Duration
	BlockTimeout   time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	ProxyURL       string
}

type CheckpointConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type VaultConfig struct {
	Addr         string
	Role         string
	KVSecretPath string
}

type MonitoringConfig struct {
	CircuitBreakerMaxRequests      uint32
	CircuitBreakerInterval         time.Duration
	CircuitBreakerTimeout          time.Duration
	CircuitBreakerFailureThreshold int
	HeartbeatWebhookURL            string
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	return &AppConfig{
		Environment: environments.Environment(env),
		ApiServer: ApiServerConfig{
			Addr:           envVarDefault("API_SERVER_ADDR", ":8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Scanner: ScannerConfig{
			ChainsFile:     envVarDefault("SCANNER_CHAINS_FILE", "chains.yaml"),
			CachePrefix:    os.Getenv("BLOCKCHAIN_CACHE_PREFIX"),
			DefaultPeriod:  envVarDefault("SCANNER_DEFAULT_PERIOD", "@every 30s"),
			JobTimeout:     envVarDuration("SCANNER_JOB_TIMEOUT", 5*time.Minute),
			RequestTimeout: envVarDuration("SCANNER_REQUEST_TIMEOUT", consts.DEFAULT_REQUEST_TIMEOUT),
			BlockTimeout:   envVarDuration("SCANNER_BLOCK_TIMEOUT", consts.DEFAULT_BLOCK_TIMEOUT),
			MaxRetries:     envVarAtoiDefault("SCANNER_MAX_RETRIES", consts.DEFAULT_MAX_RETRIES),
			RetryBackoff:   envVarDuration("SCANNER_RETRY_BACKOFF", consts.DEFAULT_RETRY_BACKOFF),
			ProxyURL:       os.Getenv("SCANNER_PROXY_URL"),
		},
		Checkpoint: CheckpointConfig{
			Driver:        envVarDefault("CHECKPOINT_DRIVER", "memory"),
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envVarAtoiDefault("REDIS_DB", 0),
			TTL:           envVarDuration("CHECKPOINT_TTL", consts.DEFAULT_CHECKPOINT_TTL),
		},
		Kafka: KafkaConfig{
			Brokers: envVarList("KAFKA_BROKERS"),
			Topic:   os.Getenv("KAFKA_TOPIC"),
		},
		Vault: VaultConfig{
			Addr:         os.Getenv("VAULT_ADDR"),
			Role:         os.Getenv("VAULT_ROLE"),
			KVSecretPath: os.Getenv("VAULT_KV_SECRET_PATH"),
		},
		Monitoring: MonitoringConfig{
			CircuitBreakerMaxRequests:      uint32(envVarAtoiDefault("CIRCUIT_BREAKER_MAX_REQUESTS", 3)),
			CircuitBreakerInterval:         envVarDuration("CIRCUIT_BREAKER_INTERVAL", 60*time.Second),
			CircuitBreakerTimeout:          envVarDuration("CIRCUIT_BREAKER_TIMEOUT", 60*time.Second),
			CircuitBreakerFailureThreshold: envVarAtoiDefault("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			HeartbeatWebhookURL:            os.Getenv("HEARTBEAT_WEBHOOK_URL"),
		},
	}
}

func envVarDefault(envName, fallback string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return fallback
}

func envVarAtoi(envName string) int {
	valueStr := os.Getenv(envName)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarAtoiDefault(envName string, fallback int) int {
	if os.Getenv(envName) == "" {
		return fallback
	}
	return envVarAtoi(envName)
}

func envVarDuration(envName string, fallback time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		panic(err)
	}
	return value
}

// envVarList splits a comma separated variable, dropping blanks.
func envVarList(envName string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(envName), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
