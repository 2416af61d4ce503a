package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var validEnvs = map[string]bool{
	"local": true,
	"alpha": true,
	"beta":  true,
	"prod":  true,
}

const minJWTSecretLen = 32

type Config struct {
	ServerPort  string
	AppEnv      string
	AuthDevMode bool
	LogLevel    string
	DB          DBConfig
	JWT         JWTConfig
	Redis       RedisConfig
	Events      EventsConfig
	Seed        SeedConfig
}

func (c Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid SERVER_PORT %q: %w", c.ServerPort, err)
	}
	if !validEnvs[c.AppEnv] {
		return fmt.Errorf("invalid APP_ENV %q: must be one of local, alpha, beta, prod", c.AppEnv)
	}
	if c.AuthDevMode && c.AppEnv != "local" {
		return fmt.Errorf("AUTH_DEV_MODE must not be enabled in %s environment", c.AppEnv)
	}
	if !c.AuthDevMode && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_DEV_MODE is disabled")
	}
	if c.JWT.Secret != "" && c.AppEnv != "local" && len(c.JWT.Secret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment", minJWTSecretLen, c.AppEnv)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Redis.StatsTTL <= 0 {
		return fmt.Errorf("STATS_CACHE_TTL must be positive")
	}
	if c.Events.SQSQueueURL != "" && c.Events.AWSRegion == "" {
		return fmt.Errorf("AWS_REGION is required when SQS_QUEUE_URL is set")
	}
	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(d.SSLMode)),
	}
	return u.String()
}

// JWTConfig configures the tokens issued at login. An empty secret disables
// issuance, which only dev mode allows.
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// RedisConfig enables the stats cache when URL is set.
type RedisConfig struct {
	URL      string
	StatsTTL time.Duration
}

// EventsConfig selects where todo lifecycle events go. Each sink is enabled
// by its own address; with none set events are dropped.
type EventsConfig struct {
	SQSQueueURL    string
	AWSRegion      string
	AWSEndpointURL string
	KafkaBrokers   []string
	KafkaTopic     string
}

// SeedConfig holds the passwords of the accounts created on an empty
// database.
type SeedConfig struct {
	AdminPassword string
	UserPassword  string
}

func Load() Config {
	return Config{
		ServerPort:  envOrDefault("SERVER_PORT", "8080"),
		AppEnv:      envOrDefault("APP_ENV", "local"),
		AuthDevMode: strings.EqualFold(envOrDefault("AUTH_DEV_MODE", "false"), "true"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		DB: DBConfig{
			Host:     envOrDefault("DB_HOST", "localhost"),
			Port:     envOrDefault("DB_PORT", "5432"),
			User:     envOrDefault("DB_USER", "planner"),
			Password: envOrDefault("DB_PASSWORD", "planner"),
			Name:     envOrDefault("DB_NAME", "planner"),
			SSLMode:  envOrDefault("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    durationOrDefault("JWT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			StatsTTL: durationOrDefault("STATS_CACHE_TTL", 5*time.Minute),
		},
		Events: EventsConfig{
			SQSQueueURL:    os.Getenv("SQS_QUEUE_URL"),
			AWSRegion:      envOrDefault("AWS_REGION", "ap-northeast-1"),
			AWSEndpointURL: os.Getenv("AWS_ENDPOINT_URL"),
			KafkaBrokers:   listOrEmpty("KAFKA_BROKERS"),
			KafkaTopic:     envOrDefault("KAFKA_TOPIC", "todo-events"),
		},
		Seed: SeedConfig{
			AdminPassword: envOrDefault("ADMIN_PASSWORD", "admin"),
			UserPassword:  envOrDefault("USER_PASSWORD", "user"),
		},
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// durationOrDefault parses Go duration syntax ("15m", "24h"). Unparseable
// values yield 0 so Validate reports them.
func durationOrDefault(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func listOrEmpty(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
