// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marcelojr/gestao-ctes/internal/domain"
)

// Config agrega todos os parâmetros necessários para API, worker e CLI.
type Config struct {
	HTTPAddress string

	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ImportQueueKey      string
	ImportResultPrefix  string
	ImportResultTTL     time.Duration
	ImportBatchSize     int
	ImportMaxUploadSize int64

	RateLimitEnabled       bool
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	ValorMaximoCTe decimal.Decimal
	Timezone       string

	AutoMigrate bool

	WorkerMetricsAddress string
	LogLevel             string
}

func Load() (Config, error) {
	// Defaults priorizam execução local; variáveis permitem sobrescrever em Docker/K8s.
	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "baker"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "baker"),
		PostgresDB:             getEnv("POSTGRES_DB", "gestao_ctes"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		RedisEnabled:           getEnvAsBool("REDIS_ENABLED", true),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		ImportQueueKey:         getEnv("IMPORT_QUEUE_KEY", "fila:importacoes"),
		ImportResultPrefix:     getEnv("IMPORT_RESULT_PREFIX", "importacao"),
		ImportResultTTL:        time.Duration(getEnvAsInt("IMPORT_RESULT_TTL_HOURS", 24)) * time.Hour,
		ImportBatchSize:        getEnvAsInt("IMPORT_BATCH_SIZE", 500),
		ImportMaxUploadSize:    int64(getEnvAsInt("IMPORT_MAX_UPLOAD_MB", 50)) << 20,
		RateLimitEnabled:       getEnvAsBool("IMPORT_RATE_LIMIT_ENABLED", true),
		RateLimitMaxActions:    getEnvAsInt("IMPORT_RATE_LIMIT_MAX", 20),
		RateLimitWindowSeconds: getEnvAsInt("IMPORT_RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:     getEnv("IMPORT_RATE_LIMIT_PREFIX", "ratelimit:importacao"),
		Timezone:               getEnv("APP_TIMEZONE", "America/Sao_Paulo"),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:   getEnv("WORKER_METRICS_ADDRESS", ":9090"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}

	dbInt, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	valorMax, err := decimal.NewFromString(getEnv("CTE_VALOR_MAXIMO", "1000000"))
	if err != nil || valorMax.IsNegative() {
		return Config{}, fmt.Errorf("config: CTE_VALOR_MAXIMO invalido: %q", os.Getenv("CTE_VALOR_MAXIMO"))
	}
	cfg.ValorMaximoCTe = valorMax

	if cfg.ImportBatchSize <= 0 {
		return Config{}, fmt.Errorf("config: IMPORT_BATCH_SIZE deve ser positivo")
	}
	if cfg.ImportMaxUploadSize <= 0 {
		return Config{}, fmt.Errorf("config: IMPORT_MAX_UPLOAD_MB deve ser positivo")
	}
	if cfg.RateLimitEnabled && (cfg.RateLimitMaxActions <= 0 || cfg.RateLimitWindowSeconds <= 0) {
		return Config{}, fmt.Errorf("config: IMPORT_RATE_LIMIT_MAX e IMPORT_RATE_LIMIT_WINDOW devem ser positivos")
	}

	return cfg, nil
}

// PostgresDSN prefere DATABASE_URL e monta o DSN a partir das partes quando ausente.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

// Regras devolve as invariantes do CT-e com o teto de valor configurado.
func (c Config) Regras() domain.Regras {
	return domain.Regras{ValorMaximo: c.ValorMaximoCTe}
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
