package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	HTTPAddr    string
	GRPCAddr    string

	DBDriver          string // mysql, sqlite or memory
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBMaxRetries      int
	DBRetryDelay      time.Duration
	MigrateOnStart    bool

	// Empty disables the cache and idempotency keys
	RedisAddr      string
	RedisPoolSize  int
	CacheTTL       time.Duration
	IdempotencyTTL time.Duration

	// Empty disables event publishing and command consumers
	AMQPURL          string
	AMQPExchange     string
	AMQPReserveQueue string
	AMQPReleaseQueue string

	WorkerCount int
	QueueSize   int

	LogLevel  string
	LogFormat string // console or json

	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// Load reads the environment, after an optional .env file in the working
// directory. Malformed numeric or duration values are reported, not defaulted.
func Load() (Config, error) {
	_ = godotenv.Load()

	e := &envReader{}
	cfg := Config{
		ServiceName: e.str("SERVICE_NAME", "inventory"),
		HTTPAddr:    e.str("HTTP_ADDR", ":8000"),
		GRPCAddr:    e.str("GRPC_ADDR", ":50051"),

		DBDriver:          strings.ToLower(e.str("DB_DRIVER", "mysql")),
		DBDSN:             e.str("DB_DSN", "root:root@tcp(localhost:3306)/inventory?parseTime=true"),
		DBMaxOpenConns:    e.int("DB_MAX_OPEN_CONNS", 30),
		DBMaxIdleConns:    e.int("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		DBMaxRetries:      e.int("DB_MAX_RETRIES", 5),
		DBRetryDelay:      e.duration("DB_RETRY_DELAY", time.Second),
		MigrateOnStart:    e.bool("MIGRATE_ON_START", true),

		RedisAddr:      e.str("REDIS_ADDR", ""),
		RedisPoolSize:  e.int("REDIS_POOL_SIZE", 100),
		CacheTTL:       e.duration("CACHE_TTL", 30*time.Second),
		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		AMQPURL:          e.str("AMQP_URL", ""),
		AMQPExchange:     e.str("AMQP_EXCHANGE", "inventory.events"),
		AMQPReserveQueue: e.str("AMQP_RESERVE_QUEUE", "inventory.reserve.request"),
		AMQPReleaseQueue: e.str("AMQP_RELEASE_QUEUE", "inventory.release.request"),

		WorkerCount: e.int("WORKER_COUNT", 4),
		QueueSize:   e.int("QUEUE_SIZE", 1000),

		LogLevel:  e.str("LOG_LEVEL", "info"),
		LogFormat: e.str("LOG_FORMAT", "console"),

		CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShutdownTimeout:    e.duration("SHUTDOWN_TIMEOUT", 20*time.Second),
	}
	if e.err != nil {
		return Config{}, e.err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "mysql", "sqlite", "memory":
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if c.DBMaxRetries < 1 {
		return fmt.Errorf("DB_MAX_RETRIES: must be at least 1, got %d", c.DBMaxRetries)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT: must be at least 1, got %d", c.WorkerCount)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("QUEUE_SIZE: must not be negative, got %d", c.QueueSize)
	}
	return nil
}

// envReader keeps the first parse error so Load can report it once.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *envReader) bool(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s: %w", key, err)
	}
}
