package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 开发环境的默认密钥，生产环境必须覆盖
const (
	defaultAccessSecret  = "secret-key"
	defaultRefreshSecret = "refresh-key"
)

// Config 应用配置
type Config struct {
	Env  string
	Port string

	// MySQL
	MySQLDSN string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Kafka（可选，未配置 broker 时不投递事件）
	KafkaBrokers []string
	KafkaTopic   string

	// JWT
	AccessSecret  string
	RefreshSecret string

	Social Social
}

// Social 社交图与信息流相关的可调参数，显式传入各个 service
type Social struct {
	MaxNewsfeedSize    int
	DefaultPageSize    int
	MaxPageSize        int
	FanoutBatchSize    int
	FanoutParallelism  int
	PostViewTTL        time.Duration
	OutboxBatchSize    int
	OutboxInterval     time.Duration
	OutboxMaxRetry     int
	ReconcileBatchSize int
	ReconcileInterval  time.Duration
}

// DefaultSocial 默认参数
func DefaultSocial() Social {
	return Social{
		MaxNewsfeedSize:    150,
		DefaultPageSize:    15,
		MaxPageSize:        50,
		FanoutBatchSize:    500,
		FanoutParallelism:  4,
		PostViewTTL:        24 * time.Hour,
		OutboxBatchSize:    200,
		OutboxInterval:     time.Second,
		OutboxMaxRetry:     10,
		ReconcileBatchSize: 500,
		ReconcileInterval:  5 * time.Minute,
	}
}

// Load 从环境变量读取配置，.env 文件存在时先加载
func Load() (*Config, error) {
	_ = godotenv.Load()

	def := DefaultSocial()
	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		MySQLDSN:      getEnv("MYSQL_DSN", "user:password@tcp(127.0.0.1:3306)/social?charset=utf8mb4&parseTime=True"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "password"),
		KafkaBrokers:  getEnvList("KAFKA_BROKERS"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "social-events"),
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", defaultAccessSecret),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", defaultRefreshSecret),
		Social: Social{
			MaxNewsfeedSize:    getEnvInt("NEWSFEED_MAX_SIZE", def.MaxNewsfeedSize),
			DefaultPageSize:    getEnvInt("PAGE_SIZE_DEFAULT", def.DefaultPageSize),
			MaxPageSize:        getEnvInt("PAGE_SIZE_MAX", def.MaxPageSize),
			FanoutBatchSize:    getEnvInt("FANOUT_BATCH_SIZE", def.FanoutBatchSize),
			FanoutParallelism:  getEnvInt("FANOUT_PARALLELISM", def.FanoutParallelism),
			PostViewTTL:        getEnvDuration("POST_VIEW_TTL", def.PostViewTTL),
			OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", def.OutboxBatchSize),
			OutboxInterval:     getEnvDuration("OUTBOX_INTERVAL", def.OutboxInterval),
			OutboxMaxRetry:     getEnvInt("OUTBOX_MAX_RETRY", def.OutboxMaxRetry),
			ReconcileBatchSize: getEnvInt("RECONCILE_BATCH_SIZE", def.ReconcileBatchSize),
			ReconcileInterval:  getEnvDuration("RECONCILE_INTERVAL", def.ReconcileInterval),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate 检查必填项
func (c *Config) Validate() error {
	if c.MySQLDSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.IsProduction() && (c.AccessSecret == defaultAccessSecret || c.RefreshSecret == defaultRefreshSecret) {
		return fmt.Errorf("JWT secrets must be set in production")
	}
	return c.Social.Validate()
}

// Validate 参数合法性
func (s Social) Validate() error {
	if s.MaxNewsfeedSize <= 0 {
		return fmt.Errorf("newsfeed size must be positive")
	}
	if s.DefaultPageSize <= 0 || s.MaxPageSize < s.DefaultPageSize {
		return fmt.Errorf("invalid page size bounds: default=%d max=%d", s.DefaultPageSize, s.MaxPageSize)
	}
	if s.FanoutBatchSize <= 0 || s.FanoutParallelism <= 0 {
		return fmt.Errorf("fanout batch size and parallelism must be positive")
	}
	if s.OutboxMaxRetry <= 0 {
		return fmt.Errorf("outbox max retry must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
