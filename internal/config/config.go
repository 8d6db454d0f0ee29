package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	RevocationDB    = "db"
	RevocationRedis = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseDriver string
	DatabaseURL    string

	JWTSecret    []byte
	TokenTTL     time.Duration
	AuthDisabled bool

	RevocationBackend string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	KafkaBrokers     []string
	KafkaTopicPrefix string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CORSOrigins []string
}

// Load reads the process environment once. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("notice: cannot read .env: %v", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "gogomedia"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseDriver: strings.ToLower(EnvDefault("DB_DRIVER", DriverPostgres)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		JWTSecret:    []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:     EnvDurationDefault("TOKEN_TTL", 5*time.Hour),
		AuthDisabled: EnvBoolDefault("AUTH_DISABLED", false),

		RevocationBackend: strings.ToLower(EnvDefault("REVOCATION_BACKEND", RevocationDB)),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           EnvIntDefault("REDIS_DB", 0),

		KafkaBrokers:     CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicPrefix: EnvDefault("KAFKA_TOPIC_PREFIX", "gogomedia"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "media"),

		CORSOrigins: CSV(EnvDefault("CORS_ORIGINS", "*")),
	}
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: missing required env DATABASE_URL", ErrInvalidConfig)
	}
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("%w: missing required env JWT_SECRET", ErrInvalidConfig)
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown DB_DRIVER %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	switch c.RevocationBackend {
	case RevocationDB:
	case RevocationRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: REVOCATION_BACKEND=redis needs REDIS_ADDR", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown REVOCATION_BACKEND %q", ErrInvalidConfig, c.RevocationBackend)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: TOKEN_TTL must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.ServerPort)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
